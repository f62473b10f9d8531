package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/logger"
	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// AgreementDeadline — срок подачи соглашения после выбора предложения.
const AgreementDeadline = 3 * 24 * time.Hour

// RequestRepository описывает хранилище заявок.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	List(ctx context.Context, filter repository.RequestFilter) ([]models.Request, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ResetToNew(ctx context.Context, id uuid.UUID) (*models.Request, error)
	Reassign(ctx context.Context, id, employeeID uuid.UUID) (*models.Request, error)
	FlagAgreementOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListAgreementDue(ctx context.Context, now time.Time) ([]models.Request, error)
}

// UserReader отдаёт пользователей для проверок ролей.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequestService — жизненный цикл заявки: создание, админские переходы и SLA.
// Выбор предложения живёт в OfferService, оплата и автозавершение в
// SettlementService, заморозка спором в DisputeService.
type RequestService struct {
	repo     RequestRepository
	users    UserReader
	notifier Notifier
}

func NewRequestService(repo RequestRepository, users UserReader, notifier Notifier) *RequestService {
	return &RequestService{repo: repo, users: users, notifier: notifier}
}

// Create создаёт заявку от имени клиента.
func (s *RequestService) Create(ctx context.Context, actor *models.User, title, details string, durationDays int, price decimal.Decimal) (*models.Request, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заявки обязательно")
	}
	if durationDays <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок должен быть положительным")
	}
	if price.IsNegative() {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена не может быть отрицательной")
	}

	req := &models.Request{
		ClientID:          actor.ID,
		Title:             title,
		Details:           details,
		EstimatedDuration: durationDays,
		EstimatedPrice:    price.Round(2),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать заявку")
	}
	return req, nil
}

// GetByID возвращает заявку.
func (s *RequestService) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// List возвращает заявки по фильтру.
func (s *RequestService) List(ctx context.Context, filter repository.RequestFilter) ([]models.Request, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

// AdminCancel отменяет заявку: статус cancelled, исполнитель и SLA поля
// снимаются. Необратимо, доступно только администраторам.
func (s *RequestService) AdminCancel(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Request, error) {
	if !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}
	req, err := s.repo.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	s.notifier.Notify(ctx, req.ClientID, "request.cancelled", req)
	return req, nil
}

// ResetToNew возвращает заявку в статус new, отклоняя все живые предложения.
func (s *RequestService) ResetToNew(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Request, error) {
	if !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}
	req, err := s.repo.ResetToNew(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// Reassign меняет назначенного исполнителя без смены статуса.
func (s *RequestService) Reassign(ctx context.Context, actor *models.User, id, employeeID uuid.UUID) (*models.Request, error) {
	if !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}
	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if employee.Role != models.RoleEmployee {
		return nil, apperror.New(apperror.ErrCodeValidation, "назначить можно только исполнителя")
	}

	req, err := s.repo.Reassign(ctx, id, employeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	s.notifier.Notify(ctx, employeeID, "request.assigned", req)
	return req, nil
}

// FlagAgreementOverdue помечает просроченный дедлайн подачи соглашения.
// Идемпотентно: повторный вызов и вызов до дедлайна ничего не меняют.
func (s *RequestService) FlagAgreementOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	flagged, err := s.repo.FlagAgreementOverdue(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperror.ErrRequestNotFound
		}
		return false, err
	}
	return flagged, nil
}

// SweepAgreementOverdue помечает все просроченные заявки. Вызывается
// периодически из фонового тикера.
func (s *RequestService) SweepAgreementOverdue(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.repo.ListAgreementDue(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, req := range due {
		ok, err := s.repo.FlagAgreementOverdue(ctx, req.ID, now)
		if err != nil {
			logger.Log.WithError(err).WithField("request_id", req.ID).
				Error("не удалось пометить просроченную заявку")
			continue
		}
		if ok {
			flagged++
		}
	}
	return flagged, nil
}
