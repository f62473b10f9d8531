package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// OfferRepository описывает хранилище предложений.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error)
	Select(ctx context.Context, offerID uuid.UUID, now, agreementDue time.Time) (*models.Offer, *models.Request, error)
	Reject(ctx context.Context, offerID uuid.UUID) (*models.Offer, error)
	Withdraw(ctx context.Context, offerID uuid.UUID) (*models.Offer, error)
}

// RequestReader отдаёт заявки для проверок доступа.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

// OfferService — подача и выбор предложений по заявке.
type OfferService struct {
	offers   OfferRepository
	requests RequestReader
	notifier Notifier
}

func NewOfferService(offers OfferRepository, requests RequestReader, notifier Notifier) *OfferService {
	return &OfferService{offers: offers, requests: requests, notifier: notifier}
}

// Submit подаёт предложение исполнителя по заявке в статусе new.
func (s *OfferService) Submit(ctx context.Context, actor *models.User, requestID uuid.UUID, price decimal.Decimal, durationDays int, note string) (*models.Offer, error) {
	if actor.Role != models.RoleEmployee {
		return nil, apperror.New(apperror.ErrCodeValidation, "подавать предложения могут только исполнители")
	}
	if !price.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена предложения должна быть положительной")
	}
	if durationDays <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок предложения должен быть положительным")
	}

	offer := &models.Offer{
		RequestID:            requestID,
		EmployeeID:           actor.ID,
		ProposedPrice:        price.Round(2),
		ProposedDurationDays: durationDays,
		Note:                 note,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, mapOfferError(err)
	}
	return offer, nil
}

// Select выбирает предложение от имени клиента заявки или администратора.
// Конкурирующие предложения отклоняются, заявка получает исполнителя и
// дедлайн подачи соглашения.
func (s *OfferService) Select(ctx context.Context, actor *models.User, offerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if err := s.requireRequestOwner(ctx, actor, offer.RequestID); err != nil {
		return nil, err
	}

	now := time.Now()
	offer, req, err := s.offers.Select(ctx, offerID, now, now.Add(AgreementDeadline))
	if err != nil {
		return nil, mapOfferError(err)
	}

	s.notifier.Notify(ctx, offer.EmployeeID, "offer.selected", offer)
	s.notifier.Notify(ctx, req.ClientID, "request.offer_selected", req)
	return offer, nil
}

// Reject отклоняет предложение. Заявку не меняет.
func (s *OfferService) Reject(ctx context.Context, actor *models.User, offerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if err := s.requireRequestOwner(ctx, actor, offer.RequestID); err != nil {
		return nil, err
	}

	offer, err = s.offers.Reject(ctx, offerID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	s.notifier.Notify(ctx, offer.EmployeeID, "offer.rejected", offer)
	return offer, nil
}

// Withdraw отзывает предложение по инициативе его автора.
func (s *OfferService) Withdraw(ctx context.Context, actor *models.User, offerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if offer.EmployeeID != actor.ID && !actor.IsAdminLike() {
		return nil, apperror.ErrForbidden
	}
	offer, err = s.offers.Withdraw(ctx, offerID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	return offer, nil
}

// ListByRequest возвращает предложения по заявке.
func (s *OfferService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error) {
	return s.offers.ListByRequest(ctx, requestID)
}

// requireRequestOwner пропускает клиента заявки и администраторов.
func (s *OfferService) requireRequestOwner(ctx context.Context, actor *models.User, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrRequestNotFound
		}
		return err
	}
	if req.ClientID != actor.ID && !actor.IsAdminLike() {
		return apperror.ErrForbidden
	}
	return nil
}

// mapOfferError переводит ошибки хранилища в типизированные ответы.
func mapOfferError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.ErrOfferNotFound
	case errors.Is(err, repository.ErrConflict):
		return apperror.New(apperror.ErrCodeConflict, "предложение изменено параллельной операцией, повторите попытку")
	case errors.Is(err, repository.ErrRequestFrozen):
		return apperror.New(apperror.ErrCodePrecondition, "заявка заморожена открытым спором")
	case errors.Is(err, repository.ErrRequestNotNew):
		return apperror.New(apperror.ErrCodePrecondition, "заявка уже не принимает предложения")
	case errors.Is(err, repository.ErrRequestAssigned):
		return apperror.New(apperror.ErrCodePrecondition, "по заявке уже назначен исполнитель")
	case errors.Is(err, repository.ErrOfferNotPending):
		return apperror.New(apperror.ErrCodePrecondition, "предложение уже рассмотрено")
	}
	return err
}
