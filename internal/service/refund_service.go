package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// RefundRepository описывает хранилище возвратов.
type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.Refund, error)
}

// RefundService — возвраты клиентам по оплаченным счетам.
type RefundService struct {
	refunds  RefundRepository
	notifier Notifier
}

func NewRefundService(refunds RefundRepository, notifier Notifier) *RefundService {
	return &RefundService{refunds: refunds, notifier: notifier}
}

// Create проводит частичный или полный возврат по оплаченному счёту.
// Сумма всех неотменённых возвратов не может превысить итог счёта.
// Непроведённая выплата по соглашению отменяется в той же транзакции.
func (s *RefundService) Create(ctx context.Context, actor *models.User, invoiceID uuid.UUID, amount decimal.Decimal, reason string) (*models.Refund, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата должна быть положительной")
	}

	refund := &models.Refund{
		InvoiceID: invoiceID,
		Amount:    amount.Round(2),
		Reason:    reason,
		CreatedBy: &actor.ID,
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrInvoiceNotFound
		case errors.Is(err, repository.ErrInvoiceNotPaid):
			return nil, apperror.New(apperror.ErrCodePrecondition, "возврат возможен только по оплаченному счёту")
		case errors.Is(err, repository.ErrRefundExceedsInvoice):
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма возвратов превышает итог счёта")
		}
		return nil, err
	}
	return refund, nil
}

// ListByInvoice возвращает возвраты по счёту.
func (s *RefundService) ListByInvoice(ctx context.Context, actor *models.User, invoiceID uuid.UUID) ([]models.Refund, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.refunds.ListByInvoice(ctx, invoiceID)
}
