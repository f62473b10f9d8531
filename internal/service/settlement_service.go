package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/logger"
	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/money"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// InvoiceRepository описывает хранилище счетов.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]models.Invoice, error)
	LatestPaidByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Invoice, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	SetPaidRef(ctx context.Context, id uuid.UUID, paidRef string) (*models.Invoice, error)
	ListPendingTransfers(ctx context.Context) ([]models.Invoice, error)
}

// SettlementRepository владеет транзакциями оплаты и автозавершения.
type SettlementRepository interface {
	MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, method, ref string, paidAt time.Time, autocomplete bool) (*repository.SettlementResult, error)
	TryAutoComplete(ctx context.Context, agreementID uuid.UUID, now time.Time) (*models.Request, bool, error)
}

// PayoutCreator создаёт выплату при автозавершении.
type PayoutCreator interface {
	AutoCreate(ctx context.Context, p *models.Payout) (bool, error)
}

// AgreementReader отдаёт соглашения для расчёта выплат.
type AgreementReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error)
}

// SettlementService — оркестратор оплаты: выставление счетов, проведение
// оплаты с каскадом продвижения заявки и автосоздание выплаты.
//
// Оплата и каскад идут одной транзакцией в хранилище; создание выплаты
// выполняется отдельной транзакцией после коммита, его сбой логируется и
// попадает в операционные предупреждения, но оплату не откатывает.
type SettlementService struct {
	settlements SettlementRepository
	invoices    InvoiceRepository
	agreements  AgreementReader
	payouts     PayoutCreator
	config      *FinanceConfigService
	notifier    Notifier
	alerts      *AlertSink

	// autocomplete — флаг развёртывания: завершать ли заявку автоматически
	// после оплаты всех счетов и одобрения всех этапов.
	autocomplete      bool
	defaultSafetyDays int
}

func NewSettlementService(
	settlements SettlementRepository,
	invoices InvoiceRepository,
	agreements AgreementReader,
	payouts PayoutCreator,
	config *FinanceConfigService,
	notifier Notifier,
	alerts *AlertSink,
	autocomplete bool,
	defaultSafetyDays int,
) *SettlementService {
	return &SettlementService{
		settlements:       settlements,
		invoices:          invoices,
		agreements:        agreements,
		payouts:           payouts,
		config:            config,
		notifier:          notifier,
		alerts:            alerts,
		autocomplete:      autocomplete,
		defaultSafetyDays: defaultSafetyDays,
	}
}

// CreateInvoice выставляет счёт по соглашению. Ставки комиссии и НДС
// фиксируются на счёте из текущих настроек, производные суммы считает
// money.Compute.
func (s *SettlementService) CreateInvoice(ctx context.Context, actor *models.User, agreementID uuid.UUID, milestoneID *uuid.UUID, amount decimal.Decimal, dueAt *time.Time, refCode string) (*models.Invoice, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма счёта должна быть положительной")
	}

	if _, err := s.agreements.GetByID(ctx, agreementID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrAgreementNotFound
		}
		return nil, err
	}

	settings, err := s.config.Get(ctx, false)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		AgreementID:        agreementID,
		MilestoneID:        milestoneID,
		Amount:             money.Q2(amount),
		PlatformFeePercent: settings.PlatformFeePercent,
		VATPercent:         settings.VATRate,
		DueAt:              dueAt,
		RefCode:            refCode,
		CreatedBy:          &actor.ID,
	}
	inv.RecomputeTotals()

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выставить счёт")
	}
	return inv, nil
}

// GetInvoice возвращает счёт.
func (s *SettlementService) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}

// ListInvoices возвращает счета соглашения.
func (s *SettlementService) ListInvoices(ctx context.Context, agreementID uuid.UUID) ([]models.Invoice, error) {
	return s.invoices.ListByAgreement(ctx, agreementID)
}

// MarkInvoicePaid проводит оплату счёта. Для действий людей требуется
// финансовая роль; вебхук платёжного шлюза вызывает с actor == nil после
// проверки подписи. Повторная оплата уже оплаченного счёта — no-op:
// каскад не запускается, выплата не дублируется.
func (s *SettlementService) MarkInvoicePaid(ctx context.Context, actor *models.User, invoiceID uuid.UUID, method, ref string, paidAt *time.Time) (*repository.SettlementResult, error) {
	if actor != nil && !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}

	when := time.Now()
	if paidAt != nil {
		when = *paidAt
	}

	res, err := s.settlements.MarkInvoicePaid(ctx, invoiceID, method, ref, when, s.autocomplete)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrInvoiceNotFound
		case errors.Is(err, repository.ErrInvoiceNotUnpaid):
			return nil, apperror.New(apperror.ErrCodePrecondition, "счёт отменён и не может быть оплачен")
		}
		return nil, err
	}
	if !res.Transitioned {
		return res, nil
	}

	s.notifier.Notify(ctx, res.Request.ClientID, "invoice.paid", res.Invoice)
	if res.Completed {
		s.notifier.Notify(ctx, res.Request.ClientID, "request.completed", res.Request)
		s.createPayoutAfterCompletion(ctx, res.Agreement, res.Request, res.Invoice)
	}
	return res, nil
}

// ConfirmTransfer подтверждает банковский перевод, референс которого клиент
// записал на счёте. Эквивалент MarkInvoicePaid с методом bank_transfer.
func (s *SettlementService) ConfirmTransfer(ctx context.Context, actor *models.User, invoiceID uuid.UUID) (*repository.SettlementResult, error) {
	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.PaidRef == "" {
		return nil, apperror.New(apperror.ErrCodePrecondition, "клиент не указал референс перевода")
	}
	return s.MarkInvoicePaid(ctx, actor, invoiceID, "bank_transfer", inv.PaidRef, nil)
}

// RecordTransferRef записывает референс банковского перевода от клиента.
func (s *SettlementService) RecordTransferRef(ctx context.Context, actor *models.User, invoiceID uuid.UUID, paidRef string) (*models.Invoice, error) {
	if paidRef == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "референс перевода обязателен")
	}
	inv, err := s.invoices.SetPaidRef(ctx, invoiceID, paidRef)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrInvoiceNotFound
		case errors.Is(err, repository.ErrInvoiceNotUnpaid):
			return nil, apperror.New(apperror.ErrCodePrecondition, "счёт уже оплачен или отменён")
		}
		return nil, err
	}
	return inv, nil
}

// ListPendingTransfers возвращает счета, ожидающие подтверждения перевода.
func (s *SettlementService) ListPendingTransfers(ctx context.Context, actor *models.User) ([]models.Invoice, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.invoices.ListPendingTransfers(ctx)
}

// CancelInvoice отменяет неоплаченный счёт.
func (s *SettlementService) CancelInvoice(ctx context.Context, actor *models.User, invoiceID uuid.UUID) (*models.Invoice, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	inv, err := s.invoices.Cancel(ctx, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrInvoiceNotFound
		case errors.Is(err, repository.ErrInvoiceNotUnpaid):
			return nil, apperror.New(apperror.ErrCodePrecondition, "оплаченный счёт отменить нельзя")
		}
		return nil, err
	}
	return inv, nil
}

// TryAutoComplete перепроверяет условия автозавершения вне оплаты счёта
// (например, после одобрения этапа клиентом).
func (s *SettlementService) TryAutoComplete(ctx context.Context, agreementID uuid.UUID) {
	if !s.autocomplete {
		return
	}

	req, completed, err := s.settlements.TryAutoComplete(ctx, agreementID, time.Now())
	if err != nil {
		logger.Log.WithError(err).WithField("agreement_id", agreementID).
			Error("не удалось перепроверить автозавершение")
		return
	}
	if !completed {
		return
	}

	agreement, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return
	}
	inv, err := s.invoices.LatestPaidByAgreement(ctx, agreementID)
	if err != nil {
		inv = nil
	}
	s.notifier.Notify(ctx, req.ClientID, "request.completed", req)
	s.createPayoutAfterCompletion(ctx, agreement, req, inv)
}

// createPayoutAfterCompletion создаёт выплату после завершения заявки.
// Сумма считается на уровне соглашения: net = сумма соглашения минус
// комиссия платформы по ставке, зафиксированной на оплаченном счёте.
// Любой сбой здесь не ошибка вызова: оплата уже проведена.
func (s *SettlementService) createPayoutAfterCompletion(ctx context.Context, agreement *models.Agreement, req *models.Request, inv *models.Invoice) {
	log := logger.Log.WithField("agreement_id", agreement.ID)

	if agreement.EmployeeID == uuid.Nil {
		log.Warn("выплата пропущена: у соглашения нет исполнителя")
		return
	}

	feeRate := decimal.Zero
	vatRate := decimal.Zero
	var invoiceID *uuid.UUID
	if inv != nil {
		feeRate = inv.PlatformFeePercent
		vatRate = inv.VATPercent
		invoiceID = &inv.ID
	} else if settings, err := s.config.Get(ctx, false); err == nil {
		feeRate = settings.PlatformFeePercent
		vatRate = settings.VATRate
	}

	net := money.Compute(agreement.TotalAmount, feeRate, vatRate).NetForEmployee
	if !net.IsPositive() {
		log.Warn("выплата пропущена: нулевая или отрицательная сумма")
		return
	}

	safetyDays := s.defaultSafetyDays
	if settings, err := s.config.Get(ctx, false); err == nil && settings.PayoutSafetyDays >= 0 {
		safetyDays = settings.PayoutSafetyDays
	}

	completedAt := time.Now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}
	readyAt := completedAt.Add(time.Duration(safetyDays) * 24 * time.Hour)

	payout := &models.Payout{
		EmployeeID:  agreement.EmployeeID,
		AgreementID: agreement.ID,
		InvoiceID:   invoiceID,
		Amount:      net,
		ReadyAt:     &readyAt,
	}
	created, err := s.payouts.AutoCreate(ctx, payout)
	if err != nil {
		log.WithError(err).Error("не удалось создать выплату после завершения заявки")
		s.alerts.Record("не удалось создать выплату после завершения заявки", map[string]string{
			"agreement_id": agreement.ID.String(),
			"request_id":   req.ID.String(),
			"error":        err.Error(),
		})
		return
	}
	if created {
		s.notifier.Notify(ctx, agreement.EmployeeID, "payout.created", payout)
	}
}
