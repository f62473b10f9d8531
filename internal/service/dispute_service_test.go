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

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Open(ctx context.Context, d *models.Dispute) (*models.Request, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Dispute, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Close(ctx context.Context, disputeID uuid.UUID, resumeStatus *string) (*models.Dispute, *models.Request, error) {
	args := m.Called(ctx, disputeID, resumeStatus)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Dispute), args.Get(1).(*models.Request), args.Error(2)
}

func (m *mockDisputeRepo) Delete(ctx context.Context, disputeID uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func newDisputeService() (*DisputeService, *mockDisputeRepo, *mockRequestReader) {
	disputes := new(mockDisputeRepo)
	requests := new(mockRequestReader)
	return NewDisputeService(disputes, requests, noopNotifier{}), disputes, requests
}

func TestDisputeService_Open_StrangerForbidden(t *testing.T) {
	svc, disputes, requests := newDisputeService()
	req := &models.Request{ID: uuid.New(), ClientID: uuid.New(), Status: models.RequestStatusInProgress}
	stranger := &models.User{ID: uuid.New(), Role: models.RoleClient}
	requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)

	_, err := svc.Open(context.Background(), stranger, req.ID, "спор", "", "")
	assert.True(t, apperror.IsForbidden(err))
	disputes.AssertNotCalled(t, "Open")
}

func TestDisputeService_Open_AssignedEmployeeAllowed(t *testing.T) {
	svc, disputes, requests := newDisputeService()
	employee := &models.User{ID: uuid.New(), Role: models.RoleEmployee}
	req := &models.Request{
		ID: uuid.New(), ClientID: uuid.New(),
		AssignedEmployeeID: &employee.ID,
		Status:             models.RequestStatusInProgress,
	}
	requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	disputes.On("Open", mock.Anything, mock.MatchedBy(func(d *models.Dispute) bool {
		return d.RequestID == req.ID && d.OpenedBy == employee.ID
	})).Return(req, nil)

	d, err := svc.Open(context.Background(), employee, req.ID, "работа не принята", "качество", "")
	assert.NoError(t, err)
	assert.Equal(t, "работа не принята", d.Title)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Open_EmptyTitle(t *testing.T) {
	svc, _, _ := newDisputeService()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	_, err := svc.Open(context.Background(), admin, uuid.New(), "", "", "")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Close_AdminOnly(t *testing.T) {
	svc, disputes, _ := newDisputeService()
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}

	_, err := svc.Close(context.Background(), client, uuid.New(), nil)
	assert.True(t, apperror.IsForbidden(err))
	disputes.AssertNotCalled(t, "Close")
}

func TestDisputeService_Close_CanonicalizesResumeStatus(t *testing.T) {
	svc, disputes, _ := newDisputeService()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	d := &models.Dispute{ID: uuid.New(), RequestID: uuid.New()}
	req := &models.Request{ID: d.RequestID, ClientID: uuid.New()}

	// Устаревшее имя статуса приводится к каноническому до обращения к базе.
	legacy := "in-progress"
	disputes.On("Close", mock.Anything, d.ID, mock.MatchedBy(func(s *string) bool {
		return s != nil && *s == models.RequestStatusInProgress
	})).Return(d, req, nil)

	_, err := svc.Close(context.Background(), admin, d.ID, &legacy)
	assert.NoError(t, err)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Close_UnknownResumeStatus(t *testing.T) {
	svc, _, _ := newDisputeService()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	bogus := "paused"

	_, err := svc.Close(context.Background(), admin, uuid.New(), &bogus)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Close_AlreadyClosed(t *testing.T) {
	svc, disputes, _ := newDisputeService()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	disputeID := uuid.New()
	disputes.On("Close", mock.Anything, disputeID, (*string)(nil)).
		Return(nil, nil, repository.ErrDisputeClosed)

	_, err := svc.Close(context.Background(), admin, disputeID, nil)
	assert.True(t, apperror.IsPrecondition(err))
}
