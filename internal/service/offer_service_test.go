package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

type mockOfferRepo struct {
	mock.Mock
}

func (m *mockOfferRepo) Create(ctx context.Context, offer *models.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *mockOfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *mockOfferRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]models.Offer), args.Error(1)
}

func (m *mockOfferRepo) Select(ctx context.Context, offerID uuid.UUID, now, agreementDue time.Time) (*models.Offer, *models.Request, error) {
	args := m.Called(ctx, offerID, now, agreementDue)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Offer), args.Get(1).(*models.Request), args.Error(2)
}

func (m *mockOfferRepo) Reject(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *mockOfferRepo) Withdraw(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

type offerFixture struct {
	offers   *mockOfferRepo
	requests *mockRequestReader
	svc      *OfferService

	client  *models.User
	offer   *models.Offer
	request *models.Request
}

func newOfferFixture() *offerFixture {
	f := &offerFixture{
		offers:   new(mockOfferRepo),
		requests: new(mockRequestReader),
	}
	f.svc = NewOfferService(f.offers, f.requests, noopNotifier{})

	f.client = &models.User{ID: uuid.New(), Role: models.RoleClient}
	f.request = &models.Request{ID: uuid.New(), ClientID: f.client.ID, Status: models.RequestStatusNew}
	f.offer = &models.Offer{
		ID:         uuid.New(),
		RequestID:  f.request.ID,
		EmployeeID: uuid.New(),
		Status:     models.OfferStatusPending,
	}
	return f
}

func TestOfferService_Submit_ClientForbidden(t *testing.T) {
	f := newOfferFixture()

	_, err := f.svc.Submit(context.Background(), f.client, f.request.ID, mustDecimal("100"), 5, "")
	assert.True(t, apperror.IsValidation(err))
	f.offers.AssertNotCalled(t, "Create")
}

func TestOfferService_Submit_NonPositivePrice(t *testing.T) {
	f := newOfferFixture()
	employee := &models.User{ID: uuid.New(), Role: models.RoleEmployee}

	_, err := f.svc.Submit(context.Background(), employee, f.request.ID, mustDecimal("0"), 5, "")
	assert.True(t, apperror.IsValidation(err))
}

func TestOfferService_Submit_RoundsPrice(t *testing.T) {
	f := newOfferFixture()
	employee := &models.User{ID: uuid.New(), Role: models.RoleEmployee}
	f.offers.On("Create", mock.Anything, mock.MatchedBy(func(o *models.Offer) bool {
		return o.ProposedPrice.Equal(mustDecimal("99.99")) && o.EmployeeID == employee.ID
	})).Return(nil)

	offer, err := f.svc.Submit(context.Background(), employee, f.request.ID, mustDecimal("99.985"), 5, "быстро")
	assert.NoError(t, err)
	assert.Equal(t, 5, offer.ProposedDurationDays)
	f.offers.AssertExpectations(t)
}

func TestOfferService_Select_StrangerForbidden(t *testing.T) {
	f := newOfferFixture()
	stranger := &models.User{ID: uuid.New(), Role: models.RoleClient}
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)
	f.requests.On("GetByID", mock.Anything, f.request.ID).Return(f.request, nil)

	_, err := f.svc.Select(context.Background(), stranger, f.offer.ID)
	assert.True(t, apperror.IsForbidden(err))
	f.offers.AssertNotCalled(t, "Select")
}

func TestOfferService_Select_SetsAgreementDeadline(t *testing.T) {
	f := newOfferFixture()
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)
	f.requests.On("GetByID", mock.Anything, f.request.ID).Return(f.request, nil)
	f.offers.On("Select", mock.Anything, f.offer.ID,
		mock.MatchedBy(func(time.Time) bool { return true }),
		mock.MatchedBy(func(due time.Time) bool {
			// Дедлайн соглашения отсчитывается от момента выбора.
			return time.Until(due) > AgreementDeadline-time.Minute
		}),
	).Return(f.offer, f.request, nil)

	_, err := f.svc.Select(context.Background(), f.client, f.offer.ID)
	assert.NoError(t, err)
	f.offers.AssertExpectations(t)
}

func TestOfferService_Select_RaceMapsToConflict(t *testing.T) {
	f := newOfferFixture()
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)
	f.requests.On("GetByID", mock.Anything, f.request.ID).Return(f.request, nil)
	f.offers.On("Select", mock.Anything, f.offer.ID, mock.Anything, mock.Anything).
		Return(nil, nil, repository.ErrConflict)

	_, err := f.svc.Select(context.Background(), f.client, f.offer.ID)
	assert.True(t, apperror.IsConflict(err))
}

func TestOfferService_Select_FrozenRequest(t *testing.T) {
	f := newOfferFixture()
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)
	f.requests.On("GetByID", mock.Anything, f.request.ID).Return(f.request, nil)
	f.offers.On("Select", mock.Anything, f.offer.ID, mock.Anything, mock.Anything).
		Return(nil, nil, repository.ErrRequestFrozen)

	_, err := f.svc.Select(context.Background(), f.client, f.offer.ID)
	assert.True(t, apperror.IsPrecondition(err))
}

func TestOfferService_Withdraw_OnlyAuthor(t *testing.T) {
	f := newOfferFixture()
	stranger := &models.User{ID: uuid.New(), Role: models.RoleEmployee}
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)

	_, err := f.svc.Withdraw(context.Background(), stranger, f.offer.ID)
	assert.True(t, apperror.IsForbidden(err))
	f.offers.AssertNotCalled(t, "Withdraw")
}

func TestOfferService_Reject_AlreadyReviewed(t *testing.T) {
	f := newOfferFixture()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	f.offers.On("GetByID", mock.Anything, f.offer.ID).Return(f.offer, nil)
	f.requests.On("GetByID", mock.Anything, f.request.ID).Return(f.request, nil)
	f.offers.On("Reject", mock.Anything, f.offer.ID).Return(nil, repository.ErrOfferNotPending)

	_, err := f.svc.Reject(context.Background(), admin, f.offer.ID)
	assert.True(t, apperror.IsPrecondition(err))
}
