package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/samilink/backend/internal/models"
)

type OfferRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create сохраняет предложение в статусе pending. Проверки бизнес-правил
// (статус заявки, заморозка, роль исполнителя) выполняются внутри одной
// транзакции с блокировкой заявки, чтобы исключить гонку с выбором
// другого предложения.
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, offer.RequestID)
	if err != nil {
		return err
	}
	if req.IsFrozen {
		return ErrRequestFrozen
	}
	if req.Status != models.RequestStatusNew {
		return ErrRequestNotNew
	}
	if req.AssignedEmployeeID != nil {
		return ErrRequestAssigned
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO offers (request_id, employee_id, proposed_price, proposed_duration_days, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at
	`, offer.RequestID, offer.EmployeeID, offer.ProposedPrice, offer.ProposedDurationDays, offer.Note,
	).Scan(&offer.ID, &offer.Status, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// У исполнителя уже есть живое предложение по этой заявке.
			return ErrConflict
		}
		return fmt.Errorf("offer repository: create: %w", err)
	}
	return tx.Commit()
}

// GetByID возвращает предложение по идентификатору.
func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.GetContext(ctx, &offer, `SELECT * FROM offers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("offer repository: get by id: %w", err)
	}
	return &offer, nil
}

// ListByRequest возвращает предложения по заявке, новые первыми.
func (r *OfferRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.SelectContext(ctx, &offers,
		`SELECT * FROM offers WHERE request_id = $1 ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("offer repository: list by request: %w", err)
	}
	return offers, nil
}

// Select атомарно выбирает предложение: остальные предложения по заявке
// отклоняются, заявка получает исполнителя, статус offer_selected и дедлайн
// подачи соглашения. Единственность выбранного предложения дополнительно
// гарантирует частичный уникальный индекс.
func (r *OfferRepository) Select(ctx context.Context, offerID uuid.UUID, now time.Time, agreementDue time.Time) (*models.Offer, *models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	offer, err := getOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, nil, err
	}

	req, err := getRequestForUpdate(ctx, tx, offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req.IsFrozen {
		return nil, nil, ErrRequestFrozen
	}
	if offer.Status != models.OfferStatusPending {
		return nil, nil, ErrOfferNotPending
	}
	if req.Status != models.RequestStatusNew {
		return nil, nil, ErrRequestNotNew
	}
	if req.AssignedEmployeeID != nil {
		return nil, nil, ErrRequestAssigned
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE offers SET status = $3, updated_at = NOW()
		WHERE request_id = $1 AND id <> $2 AND status = $4
	`, offer.RequestID, offerID, models.OfferStatusRejected, models.OfferStatusPending)
	if err != nil {
		return nil, nil, fmt.Errorf("offer repository: reject siblings: %w", err)
	}

	err = tx.GetContext(ctx, offer, `
		UPDATE offers SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, offerID, models.OfferStatusSelected)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrConflict
		}
		return nil, nil, fmt.Errorf("offer repository: select offer: %w", err)
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET status = $2, assigned_employee_id = $3, offer_selected_at = $4,
		    agreement_due_at = $5, sla_agreement_overdue = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, req.ID, models.RequestStatusOfferSelected, offer.EmployeeID, now, agreementDue)
	if err != nil {
		return nil, nil, fmt.Errorf("offer repository: select update request: %w", err)
	}

	return offer, req, tx.Commit()
}

// Reject отклоняет предложение. Допустимо только из pending, заявку не трогает.
func (r *OfferRepository) Reject(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	return r.finishOffer(ctx, offerID, models.OfferStatusRejected)
}

// Withdraw отзывает предложение по инициативе исполнителя.
func (r *OfferRepository) Withdraw(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	return r.finishOffer(ctx, offerID, models.OfferStatusWithdrawn)
}

func (r *OfferRepository) finishOffer(ctx context.Context, offerID uuid.UUID, status string) (*models.Offer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	offer, err := getOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusPending {
		return nil, ErrOfferNotPending
	}

	err = tx.GetContext(ctx, offer, `
		UPDATE offers SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, offerID, status)
	if err != nil {
		return nil, fmt.Errorf("offer repository: finish offer: %w", err)
	}
	return offer, tx.Commit()
}

func getOfferForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := tx.GetContext(ctx, &offer, `SELECT * FROM offers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("offer repository: lock offer: %w", err)
	}
	return &offer, nil
}
