package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/samilink/backend/internal/config"
	"github.com/samilink/backend/internal/db"
	httpHandlers "github.com/samilink/backend/internal/http/handlers"
	httpRouter "github.com/samilink/backend/internal/http/router"
	"github.com/samilink/backend/internal/logger"
	"github.com/samilink/backend/internal/repository"
	"github.com/samilink/backend/internal/service"
	"github.com/samilink/backend/internal/ws"
)

// sweepPeriod — период фоновой пометки просроченных дедлайнов соглашений.
const sweepPeriod = 10 * time.Minute

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	requestRepo := repository.NewRequestRepository(dbConn)
	offerRepo := repository.NewOfferRepository(dbConn)
	agreementRepo := repository.NewAgreementRepository(dbConn)
	invoiceRepo := repository.NewInvoiceRepository(dbConn)
	settlementRepo := repository.NewSettlementRepository(dbConn)
	payoutRepo := repository.NewPayoutRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	refundRepo := repository.NewRefundRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	financeSettingsRepo := repository.NewFinanceSettingsRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Сервисы.
	alerts := service.NewAlertSink(100)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	financeConfig := service.NewFinanceConfigService(financeSettingsRepo, cfg.FinanceCfgTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	requestService := service.NewRequestService(requestRepo, userRepo, notificationService)
	offerService := service.NewOfferService(offerRepo, requestRepo, notificationService)
	settlementService := service.NewSettlementService(
		settlementRepo, invoiceRepo, agreementRepo, payoutRepo,
		financeConfig, notificationService, alerts,
		cfg.AutocompleteOnPaid, cfg.PayoutSafetyDays,
	)
	agreementService := service.NewAgreementService(agreementRepo, requestRepo, settlementService, notificationService)
	payoutService := service.NewPayoutService(
		payoutRepo, agreementRepo, requestRepo, invoiceRepo,
		financeConfig, notificationService, cfg.PayoutSafetyDays,
	)
	disputeService := service.NewDisputeService(disputeRepo, requestRepo, notificationService)
	refundService := service.NewRefundService(refundRepo, notificationService)
	reportService := service.NewReportService(reportRepo, alerts)
	webhookService := service.NewWebhookService(cfg.WebhookSecret, settlementService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	requestHandler := httpHandlers.NewRequestHandler(requestService)
	offerHandler := httpHandlers.NewOfferHandler(offerService)
	agreementHandler := httpHandlers.NewAgreementHandler(agreementService)
	invoiceHandler := httpHandlers.NewInvoiceHandler(settlementService)
	webhookHandler := httpHandlers.NewWebhookHandler(webhookService)
	payoutHandler := httpHandlers.NewPayoutHandler(payoutService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	refundHandler := httpHandlers.NewRefundHandler(refundService)
	reportHandler := httpHandlers.NewReportHandler(reportService)
	financeSettingsHandler := httpHandlers.NewFinanceSettingsHandler(financeConfig)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)

	engine := httpRouter.SetupRouter(
		cfg,
		authHandler, requestHandler, offerHandler, agreementHandler,
		invoiceHandler, webhookHandler, payoutHandler, disputeHandler,
		refundHandler, reportHandler, financeSettingsHandler,
		notificationHandler, healthHandler, wsHandler,
		tokenManager, authService,
	)

	// Фоновая пометка просроченных дедлайнов подачи соглашения.
	go runOverdueSweeper(ctx, requestService)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// runOverdueSweeper периодически помечает заявки с просроченным дедлайном
// подачи соглашения.
func runOverdueSweeper(ctx context.Context, requests *service.RequestService) {
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flagged, err := requests.SweepAgreementOverdue(ctx)
			if err != nil {
				logger.Log.WithError(err).Error("не удалось обойти просроченные заявки")
				continue
			}
			if flagged > 0 {
				logger.Log.WithField("flagged", flagged).Info("помечены просроченные дедлайны соглашений")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
