package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// DisputeRepository описывает хранилище споров.
type DisputeRepository interface {
	Open(ctx context.Context, d *models.Dispute) (*models.Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Dispute, error)
	Close(ctx context.Context, disputeID uuid.UUID, resumeStatus *string) (*models.Dispute, *models.Request, error)
	Delete(ctx context.Context, disputeID uuid.UUID) (*models.Request, error)
}

// DisputeService — открытие и разрешение споров. Открытый спор замораживает
// заявку и останавливает автозавершение и выплаты до разрешения.
type DisputeService struct {
	disputes DisputeRepository
	requests RequestReader
	notifier Notifier
}

func NewDisputeService(disputes DisputeRepository, requests RequestReader, notifier Notifier) *DisputeService {
	return &DisputeService{disputes: disputes, requests: requests, notifier: notifier}
}

// Open открывает спор по заявке. Доступно её клиенту, назначенному
// исполнителю и администраторам. Заявка замораживается в той же транзакции.
func (s *DisputeService) Open(ctx context.Context, actor *models.User, requestID uuid.UUID, title, reason, details string) (*models.Dispute, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название спора обязательно")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}

	party := req.ClientID == actor.ID ||
		(req.AssignedEmployeeID != nil && *req.AssignedEmployeeID == actor.ID)
	if !party && !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}

	d := &models.Dispute{
		RequestID: requestID,
		OpenedBy:  actor.ID,
		Title:     title,
		Reason:    reason,
		Details:   details,
	}
	req, err = s.disputes.Open(ctx, d)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}

	s.notifier.Notify(ctx, req.ClientID, "dispute.opened", d)
	if req.AssignedEmployeeID != nil {
		s.notifier.Notify(ctx, *req.AssignedEmployeeID, "dispute.opened", d)
	}
	return d, nil
}

// Close закрывает спор. Если открытых споров по заявке больше нет, заявка
// размораживается и возобновляется: в переданный статус, иначе в
// agreement_pending при когда-либо выбранном предложении, иначе в new.
// Доступно администраторам.
func (s *DisputeService) Close(ctx context.Context, actor *models.User, disputeID uuid.UUID, resumeStatus *string) (*models.Dispute, error) {
	if !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}
	if resumeStatus != nil {
		canonical, ok := models.CanonicalRequestStatus(*resumeStatus)
		if !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус возобновления")
		}
		resumeStatus = &canonical
	}

	d, req, err := s.disputes.Close(ctx, disputeID, resumeStatus)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrDisputeNotFound
		case errors.Is(err, repository.ErrDisputeClosed):
			return nil, apperror.New(apperror.ErrCodePrecondition, "спор уже закрыт")
		}
		return nil, err
	}

	s.notifier.Notify(ctx, req.ClientID, "dispute.closed", d)
	if req.AssignedEmployeeID != nil {
		s.notifier.Notify(ctx, *req.AssignedEmployeeID, "dispute.closed", d)
	}
	return d, nil
}

// Delete удаляет спор. Заморозка снимается, если открытых споров не
// осталось, но статус заявки удаление не меняет.
func (s *DisputeService) Delete(ctx context.Context, actor *models.User, disputeID uuid.UUID) error {
	if !actor.IsAdminLike() {
		return apperror.ErrForbidden
	}
	if _, err := s.disputes.Delete(ctx, disputeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrDisputeNotFound
		}
		return err
	}
	return nil
}

// ListByRequest возвращает споры по заявке.
func (s *DisputeService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Dispute, error) {
	return s.disputes.ListByRequest(ctx, requestID)
}
