package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

type mockRequestRepo struct {
	mock.Mock
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *mockRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]models.Request, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Request), args.Error(1)
}

func (m *mockRequestRepo) Cancel(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *mockRequestRepo) ResetToNew(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *mockRequestRepo) Reassign(ctx context.Context, id, employeeID uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *mockRequestRepo) FlagAgreementOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockRequestRepo) ListAgreementDue(ctx context.Context, now time.Time) ([]models.Request, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.Request), args.Error(1)
}

type mockUserReader struct {
	mock.Mock
}

func (m *mockUserReader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newRequestService() (*RequestService, *mockRequestRepo, *mockUserReader) {
	repo := new(mockRequestRepo)
	users := new(mockUserReader)
	return NewRequestService(repo, users, noopNotifier{}), repo, users
}

func TestRequestService_Create_RoundsPrice(t *testing.T) {
	svc, repo, _ := newRequestService()
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Request) bool {
		return r.ClientID == client.ID && r.EstimatedPrice.Equal(mustDecimal("1000.56"))
	})).Return(nil)

	req, err := svc.Create(context.Background(), client, "ремонт кухни", "детали", 14, mustDecimal("1000.555"))
	assert.NoError(t, err)
	assert.Equal(t, 14, req.EstimatedDuration)
	repo.AssertExpectations(t)
}

func TestRequestService_Create_Validation(t *testing.T) {
	svc, repo, _ := newRequestService()
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}

	_, err := svc.Create(context.Background(), client, "", "", 14, mustDecimal("100"))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(context.Background(), client, "ремонт", "", 0, mustDecimal("100"))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(context.Background(), client, "ремонт", "", 14, mustDecimal("-1"))
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create")
}

func TestRequestService_List_DefaultsLimit(t *testing.T) {
	svc, repo, _ := newRequestService()
	repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.RequestFilter) bool {
		return f.Limit == 20
	})).Return([]models.Request{}, nil)

	_, err := svc.List(context.Background(), repository.RequestFilter{Limit: 0})
	assert.NoError(t, err)
	_, err = svc.List(context.Background(), repository.RequestFilter{Limit: 500})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRequestService_AdminCancel_Forbidden(t *testing.T) {
	svc, repo, _ := newRequestService()
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}

	_, err := svc.AdminCancel(context.Background(), client, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Cancel")
}

func TestRequestService_Reassign_OnlyEmployee(t *testing.T) {
	svc, repo, users := newRequestService()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	target := &models.User{ID: uuid.New(), Role: models.RoleClient}
	users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	_, err := svc.Reassign(context.Background(), admin, uuid.New(), target.ID)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Reassign")
}

func TestRequestService_FlagAgreementOverdue_Idempotent(t *testing.T) {
	svc, repo, _ := newRequestService()
	id := uuid.New()
	repo.On("FlagAgreementOverdue", mock.Anything, id, mock.Anything).Return(true, nil).Once()
	repo.On("FlagAgreementOverdue", mock.Anything, id, mock.Anything).Return(false, nil).Once()

	flagged, err := svc.FlagAgreementOverdue(context.Background(), id)
	assert.NoError(t, err)
	assert.True(t, flagged)

	// Повторный вызов уже ничего не меняет.
	flagged, err = svc.FlagAgreementOverdue(context.Background(), id)
	assert.NoError(t, err)
	assert.False(t, flagged)
}

func TestRequestService_SweepAgreementOverdue_ContinuesOnError(t *testing.T) {
	svc, repo, _ := newRequestService()
	due := []models.Request{
		{ID: uuid.New()},
		{ID: uuid.New()},
		{ID: uuid.New()},
	}
	repo.On("ListAgreementDue", mock.Anything, mock.Anything).Return(due, nil)
	repo.On("FlagAgreementOverdue", mock.Anything, due[0].ID, mock.Anything).Return(true, nil)
	repo.On("FlagAgreementOverdue", mock.Anything, due[1].ID, mock.Anything).Return(false, errors.New("deadlock"))
	repo.On("FlagAgreementOverdue", mock.Anything, due[2].ID, mock.Anything).Return(true, nil)

	flagged, err := svc.SweepAgreementOverdue(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, flagged)
}
