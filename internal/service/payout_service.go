package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// PayoutRepository описывает хранилище выплат.
type PayoutRepository interface {
	AutoCreate(ctx context.Context, p *models.Payout) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetActiveByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Payout, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]models.Payout, error)
	ListByStatus(ctx context.Context, status string) ([]models.Payout, error)
	MarkPaid(ctx context.Context, id uuid.UUID, method, ref string, now time.Time) (*models.Payout, error)
	Cancel(ctx context.Context, id uuid.UUID, note string) (*models.Payout, error)
}

// PaidInvoiceReader отдаёт последний оплаченный счёт соглашения.
type PaidInvoiceReader interface {
	LatestPaidByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Invoice, error)
}

// Eligibility — результат проверки готовности выплаты с причиной отказа.
type Eligibility struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// PayoutService — проверка готовности и проведение выплат исполнителям.
type PayoutService struct {
	payouts    PayoutRepository
	agreements AgreementReader
	requests   RequestReader
	invoices   PaidInvoiceReader
	config     *FinanceConfigService
	notifier   Notifier

	defaultSafetyDays int
}

func NewPayoutService(
	payouts PayoutRepository,
	agreements AgreementReader,
	requests RequestReader,
	invoices PaidInvoiceReader,
	config *FinanceConfigService,
	notifier Notifier,
	defaultSafetyDays int,
) *PayoutService {
	return &PayoutService{
		payouts:           payouts,
		agreements:        agreements,
		requests:          requests,
		invoices:          invoices,
		config:            config,
		notifier:          notifier,
		defaultSafetyDays: defaultSafetyDays,
	}
}

// IsEligible проверяет готовность соглашения к выплате. Проверки идут по
// порядку и обрываются на первой неудаче:
//  1. заявка завершена;
//  2. есть оплаченный счёт с датой оплаты;
//  3. заявка не под спором;
//  4. окно безопасности после оплаты истекло;
//  5. по соглашению нет неотменённой выплаты.
func (s *PayoutService) IsEligible(ctx context.Context, agreementID uuid.UUID, now time.Time) (*Eligibility, error) {
	return s.isEligible(ctx, agreementID, now, uuid.Nil)
}

// isEligible выполняет цепочку проверок. exclude исключает из последней
// проверки выплату, которую сейчас проводит Disburse: сама она не помеха
// собственному проведению.
func (s *PayoutService) isEligible(ctx context.Context, agreementID uuid.UUID, now time.Time, exclude uuid.UUID) (*Eligibility, error) {
	agreement, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrAgreementNotFound
		}
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, agreement.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != models.RequestStatusCompleted {
		return &Eligibility{Reason: "заявка не завершена"}, nil
	}

	inv, err := s.invoices.LatestPaidByAgreement(ctx, agreementID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Eligibility{Reason: "нет оплаченного счёта"}, nil
		}
		return nil, err
	}
	if inv.PaidAt == nil {
		return &Eligibility{Reason: "нет оплаченного счёта"}, nil
	}

	if req.IsDisputed() {
		return &Eligibility{Reason: "заявка под спором"}, nil
	}

	safetyDays := s.defaultSafetyDays
	if settings, err := s.config.Get(ctx, false); err == nil && settings.PayoutSafetyDays >= 0 {
		safetyDays = settings.PayoutSafetyDays
	}
	unlockAt := inv.PaidAt.Add(time.Duration(safetyDays) * 24 * time.Hour)
	if now.Before(unlockAt) {
		return &Eligibility{Reason: "окно безопасности ещё не истекло"}, nil
	}

	active, err := s.payouts.GetActiveByAgreement(ctx, agreementID)
	switch {
	case err == nil:
		if active.ID != exclude {
			return &Eligibility{Reason: "по соглашению уже есть неотменённая выплата"}, nil
		}
	case errors.Is(err, repository.ErrNotFound):
		// Выплаты ещё нет, автосоздание допустимо.
	default:
		return nil, err
	}

	return &Eligibility{OK: true}, nil
}

// Disburse проводит выплату: pending → paid. Финансовое действие,
// дополнительно ограждённое проверкой готовности.
func (s *PayoutService) Disburse(ctx context.Context, actor *models.User, payoutID uuid.UUID, method, ref string) (*models.Payout, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}

	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrPayoutNotFound
		}
		return nil, err
	}

	now := time.Now()
	if payout.ReadyAt != nil && now.Before(*payout.ReadyAt) {
		return nil, apperror.New(apperror.ErrCodePrecondition, "окно безопасности выплаты ещё не истекло")
	}

	elig, err := s.isEligible(ctx, payout.AgreementID, now, payout.ID)
	if err != nil {
		return nil, err
	}
	if !elig.OK {
		return nil, apperror.New(apperror.ErrCodePrecondition, "выплата не готова: "+elig.Reason)
	}

	payout, err = s.payouts.MarkPaid(ctx, payoutID, method, ref, now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrPayoutNotFound
		case errors.Is(err, repository.ErrPayoutNotPending):
			return nil, apperror.New(apperror.ErrCodePrecondition, "выплата уже проведена или отменена")
		}
		return nil, err
	}

	s.notifier.Notify(ctx, payout.EmployeeID, "payout.paid", payout)
	return payout, nil
}

// Cancel отменяет непроведённую выплату.
func (s *PayoutService) Cancel(ctx context.Context, actor *models.User, payoutID uuid.UUID, note string) (*models.Payout, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	payout, err := s.payouts.Cancel(ctx, payoutID, note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrPayoutNotFound
		case errors.Is(err, repository.ErrPayoutNotPending):
			return nil, apperror.New(apperror.ErrCodePrecondition, "проведённую выплату отменить нельзя")
		}
		return nil, err
	}
	return payout, nil
}

// GetByID возвращает выплату её получателю или финансовой роли.
func (s *PayoutService) GetByID(ctx context.Context, actor *models.User, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrPayoutNotFound
		}
		return nil, err
	}
	if payout.EmployeeID != actor.ID && !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return payout, nil
}

// ListByEmployee возвращает выплаты исполнителя.
func (s *PayoutService) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payouts.ListByEmployee(ctx, employeeID, limit, offset)
}

// ListPending возвращает выплаты, ожидающие проведения.
func (s *PayoutService) ListPending(ctx context.Context, actor *models.User) ([]models.Payout, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.payouts.ListByStatus(ctx, models.PayoutStatusPending)
}
