package router

import (
	"github.com/gin-gonic/gin"

	"github.com/samilink/backend/internal/config"
	"github.com/samilink/backend/internal/http/handlers"
	"github.com/samilink/backend/internal/http/middleware"
	"github.com/samilink/backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	requestHandler *handlers.RequestHandler,
	offerHandler *handlers.OfferHandler,
	agreementHandler *handlers.AgreementHandler,
	invoiceHandler *handlers.InvoiceHandler,
	webhookHandler *handlers.WebhookHandler,
	payoutHandler *handlers.PayoutHandler,
	disputeHandler *handlers.DisputeHandler,
	refundHandler *handlers.RefundHandler,
	reportHandler *handlers.ReportHandler,
	financeSettingsHandler *handlers.FinanceSettingsHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	tokenManager *service.TokenManager,
	users middleware.UserLoader,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Вебхук платёжного шлюза: авторизация подписью тела, не токеном.
	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		webhooks.POST("/payment", webhookHandler.PaymentEvent)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager, users))
	{
		protected.GET("/profile", authHandler.Me)

		// Заявки
		protected.POST("/requests", requestHandler.Create)
		protected.GET("/requests", requestHandler.List)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.Get)
		protected.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), requestHandler.Cancel)
		protected.POST("/requests/:id/reset", middleware.UUIDValidator("id"), requestHandler.ResetToNew)
		protected.POST("/requests/:id/reassign", middleware.UUIDValidator("id"), requestHandler.Reassign)
		protected.POST("/requests/:id/flag-overdue", middleware.UUIDValidator("id"), requestHandler.FlagOverdue)

		// Предложения
		protected.POST("/requests/:id/offers", middleware.UUIDValidator("id"), offerHandler.Submit)
		protected.GET("/requests/:id/offers", middleware.UUIDValidator("id"), offerHandler.List)
		protected.POST("/offers/:id/select", middleware.UUIDValidator("id"), offerHandler.Select)
		protected.POST("/offers/:id/reject", middleware.UUIDValidator("id"), offerHandler.Reject)
		protected.POST("/offers/:id/withdraw", middleware.UUIDValidator("id"), offerHandler.Withdraw)

		// Соглашения и этапы
		protected.POST("/requests/:id/agreement", middleware.UUIDValidator("id"), agreementHandler.Create)
		protected.GET("/agreements/:id", middleware.UUIDValidator("id"), agreementHandler.Get)
		protected.POST("/agreements/:id/milestones", middleware.UUIDValidator("id"), agreementHandler.AddMilestone)
		protected.GET("/agreements/:id/milestones", middleware.UUIDValidator("id"), agreementHandler.ListMilestones)
		protected.POST("/milestones/:id/approve", middleware.UUIDValidator("id"), agreementHandler.ApproveMilestone)

		// Счета и оплата
		protected.POST("/agreements/:id/invoices", middleware.UUIDValidator("id"), invoiceHandler.Create)
		protected.GET("/agreements/:id/invoices", middleware.UUIDValidator("id"), invoiceHandler.ListByAgreement)
		protected.GET("/invoices/pending-transfers", invoiceHandler.ListPendingTransfers)
		protected.GET("/invoices/:id", middleware.UUIDValidator("id"), invoiceHandler.Get)
		protected.POST("/invoices/:id/pay", middleware.UUIDValidator("id"), invoiceHandler.MarkPaid)
		protected.POST("/invoices/:id/cancel", middleware.UUIDValidator("id"), invoiceHandler.Cancel)
		protected.POST("/invoices/:id/transfer-ref", middleware.UUIDValidator("id"), invoiceHandler.RecordTransferRef)
		protected.POST("/invoices/:id/confirm-transfer", middleware.UUIDValidator("id"), invoiceHandler.ConfirmTransfer)

		// Возвраты
		protected.POST("/invoices/:id/refunds", middleware.UUIDValidator("id"), refundHandler.Create)
		protected.GET("/invoices/:id/refunds", middleware.UUIDValidator("id"), refundHandler.List)

		// Выплаты
		protected.GET("/agreements/:id/payout-eligibility", middleware.UUIDValidator("id"), payoutHandler.Eligibility)
		protected.GET("/payouts/my", payoutHandler.ListMy)
		protected.GET("/payouts/pending", payoutHandler.ListPending)
		protected.GET("/payouts/:id", middleware.UUIDValidator("id"), payoutHandler.Get)
		protected.POST("/payouts/:id/disburse", middleware.UUIDValidator("id"), payoutHandler.Disburse)
		protected.POST("/payouts/:id/cancel", middleware.UUIDValidator("id"), payoutHandler.Cancel)

		// Споры
		protected.POST("/requests/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.GET("/requests/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.List)
		protected.POST("/disputes/:id/close", middleware.UUIDValidator("id"), disputeHandler.Close)
		protected.DELETE("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Delete)

		// Казначейство и отчётность
		protected.GET("/reports/treasury", reportHandler.Treasury)
		protected.GET("/reports/invoices", reportHandler.InvoiceTotals)
		protected.GET("/reports/collections.csv", reportHandler.CollectionsCSV)
		protected.GET("/reports/ledger", reportHandler.Ledger)
		protected.POST("/reports/tax-remittances", reportHandler.RemitTax)
		protected.GET("/reports/alerts", reportHandler.Alerts)

		// Финансовые настройки
		protected.GET("/finance/settings", financeSettingsHandler.Get)
		protected.PUT("/finance/settings", financeSettingsHandler.Update)

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
	}

	return r
}
