package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

type mockRefundRepo struct {
	mock.Mock
}

func (m *mockRefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *mockRefundRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.Refund, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]models.Refund), args.Error(1)
}

func TestRefundService_Create_RoundsAmount(t *testing.T) {
	refunds := new(mockRefundRepo)
	svc := NewRefundService(refunds, noopNotifier{})
	actor := financeActor()
	invoiceID := uuid.New()

	refunds.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Refund) bool {
		return r.InvoiceID == invoiceID &&
			r.Amount.Equal(mustDecimal("50.01")) &&
			r.CreatedBy != nil && *r.CreatedBy == actor.ID
	})).Return(nil)

	r, err := svc.Create(context.Background(), actor, invoiceID, mustDecimal("50.005"), "двойная оплата")
	assert.NoError(t, err)
	assert.Equal(t, "двойная оплата", r.Reason)
	refunds.AssertExpectations(t)
}

func TestRefundService_Create_Forbidden(t *testing.T) {
	svc := NewRefundService(new(mockRefundRepo), noopNotifier{})
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}

	_, err := svc.Create(context.Background(), client, uuid.New(), mustDecimal("10"), "")
	assert.True(t, apperror.IsForbidden(err))
}

func TestRefundService_Create_NonPositiveAmount(t *testing.T) {
	refunds := new(mockRefundRepo)
	svc := NewRefundService(refunds, noopNotifier{})

	_, err := svc.Create(context.Background(), financeActor(), uuid.New(), mustDecimal("0"), "")
	assert.True(t, apperror.IsValidation(err))
	refunds.AssertNotCalled(t, "Create")
}

func TestRefundService_Create_InvoiceNotPaid(t *testing.T) {
	refunds := new(mockRefundRepo)
	svc := NewRefundService(refunds, noopNotifier{})
	refunds.On("Create", mock.Anything, mock.Anything).Return(repository.ErrInvoiceNotPaid)

	_, err := svc.Create(context.Background(), financeActor(), uuid.New(), mustDecimal("10"), "")
	assert.True(t, apperror.IsPrecondition(err))
}

func TestRefundService_Create_ExceedsInvoice(t *testing.T) {
	refunds := new(mockRefundRepo)
	svc := NewRefundService(refunds, noopNotifier{})
	refunds.On("Create", mock.Anything, mock.Anything).Return(repository.ErrRefundExceedsInvoice)

	_, err := svc.Create(context.Background(), financeActor(), uuid.New(), mustDecimal("9999"), "")
	assert.True(t, apperror.IsValidation(err))
}
