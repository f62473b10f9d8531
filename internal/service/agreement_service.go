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

// AgreementRepository описывает хранилище соглашений и этапов.
type AgreementRepository interface {
	Create(ctx context.Context, agreement *models.Agreement) (*models.Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error)
	GetActiveByRequest(ctx context.Context, requestID uuid.UUID) (*models.Agreement, error)
	CreateMilestone(ctx context.Context, m *models.Milestone) error
	GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListMilestones(ctx context.Context, agreementID uuid.UUID) ([]models.Milestone, error)
	ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.Milestone, error)
}

// AgreementService — оформление соглашения по выбранному предложению и
// работа с этапами.
type AgreementService struct {
	agreements AgreementRepository
	requests   RequestReader
	settlement *SettlementService
	notifier   Notifier
}

func NewAgreementService(agreements AgreementRepository, requests RequestReader, settlement *SettlementService, notifier Notifier) *AgreementService {
	return &AgreementService{agreements: agreements, requests: requests, settlement: settlement, notifier: notifier}
}

// Create оформляет соглашение по заявке с выбранным предложением.
// Доступно назначенному исполнителю или администратору.
func (s *AgreementService) Create(ctx context.Context, actor *models.User, requestID uuid.UUID, title string, totalAmount decimal.Decimal) (*models.Agreement, error) {
	if totalAmount.IsNegative() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма соглашения не может быть отрицательной")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	if req.AssignedEmployeeID == nil {
		return nil, apperror.New(apperror.ErrCodePrecondition, "по заявке не выбрано предложение")
	}
	if *req.AssignedEmployeeID != actor.ID && !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}

	agreement := &models.Agreement{
		RequestID:   requestID,
		EmployeeID:  *req.AssignedEmployeeID,
		Title:       title,
		TotalAmount: totalAmount.Round(2),
	}
	req, err = s.agreements.Create(ctx, agreement)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, apperror.New(apperror.ErrCodePrecondition, "по заявке уже есть действующее соглашение")
		case errors.Is(err, repository.ErrRequestFrozen):
			return nil, apperror.New(apperror.ErrCodePrecondition, "заявка заморожена открытым спором")
		case errors.Is(err, repository.ErrRequestNotNew):
			return nil, apperror.New(apperror.ErrCodePrecondition, "заявка не ожидает соглашения")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}

	s.notifier.Notify(ctx, req.ClientID, "agreement.created", agreement)
	return agreement, nil
}

// GetByID возвращает соглашение.
func (s *AgreementService) GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	agreement, err := s.agreements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrAgreementNotFound
		}
		return nil, err
	}
	return agreement, nil
}

// AddMilestone добавляет этап соглашения.
func (s *AgreementService) AddMilestone(ctx context.Context, actor *models.User, agreementID uuid.UUID, title string, amount decimal.Decimal) (*models.Milestone, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название этапа обязательно")
	}
	if amount.IsNegative() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма этапа не может быть отрицательной")
	}

	agreement, err := s.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if agreement.EmployeeID != actor.ID && !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}

	m := &models.Milestone{
		AgreementID: agreementID,
		Title:       title,
		Amount:      amount.Round(2),
	}
	if err := s.agreements.CreateMilestone(ctx, m); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать этап")
	}
	return m, nil
}

// ListMilestones возвращает этапы соглашения.
func (s *AgreementService) ListMilestones(ctx context.Context, agreementID uuid.UUID) ([]models.Milestone, error) {
	return s.agreements.ListMilestones(ctx, agreementID)
}

// ApproveMilestone фиксирует одобрение этапа клиентом и перепроверяет
// условия автозавершения заявки: одобрение может оказаться последним
// недостающим условием.
func (s *AgreementService) ApproveMilestone(ctx context.Context, actor *models.User, milestoneID uuid.UUID) (*models.Milestone, error) {
	m, err := s.agreements.GetMilestone(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "этап не найден")
		}
		return nil, err
	}

	agreement, err := s.GetByID(ctx, m.AgreementID)
	if err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, agreement.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != actor.ID && !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}

	m, err = s.agreements.ApproveMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	s.settlement.TryAutoComplete(ctx, agreement.ID)
	return m, nil
}
