package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/samilink/backend/internal/models"
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open создаёт спор и в той же транзакции замораживает заявку: статус
// disputed, флаг заморозки и причина. Заморозка уже замороженной заявки — no-op.
func (r *DisputeRepository) Open(ctx context.Context, d *models.Dispute) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, d.RequestID)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO disputes (request_id, opened_by, title, reason, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_open, created_at
	`, d.RequestID, d.OpenedBy, d.Title, d.Reason, d.Details,
	).Scan(&d.ID, &d.IsOpen, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: open: %w", err)
	}

	if !req.IsFrozen || req.Status != models.RequestStatusDisputed {
		err = tx.GetContext(ctx, req, `
			UPDATE requests
			SET status = $2, is_frozen = TRUE, freeze_reason = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, d.RequestID, models.RequestStatusDisputed, d.Reason)
		if err != nil {
			return nil, fmt.Errorf("dispute repository: freeze request: %w", err)
		}
	}

	return req, tx.Commit()
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id: %w", err)
	}
	return &d, nil
}

// ListByRequest возвращает споры по заявке, новые первыми.
func (r *DisputeRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes,
		`SELECT * FROM disputes WHERE request_id = $1 ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by request: %w", err)
	}
	return disputes, nil
}

// Close закрывает спор. Если по заявке не осталось открытых споров, заявка
// размораживается и возобновляется: в явно переданный статус, иначе в
// agreement_pending, если предложение когда-либо выбиралось, иначе в new.
func (r *DisputeRepository) Close(ctx context.Context, disputeID uuid.UUID, resumeStatus *string) (*models.Dispute, *models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var d models.Dispute
	err = tx.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, disputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("dispute repository: lock dispute: %w", err)
	}
	if !d.IsOpen {
		return nil, nil, ErrDisputeClosed
	}

	err = tx.GetContext(ctx, &d, `
		UPDATE disputes SET is_open = FALSE, closed_at = NOW() WHERE id = $1 RETURNING *
	`, disputeID)
	if err != nil {
		return nil, nil, fmt.Errorf("dispute repository: close: %w", err)
	}

	req, err := unfreezeIfResolved(ctx, tx, d.RequestID, resumeStatus)
	if err != nil {
		return nil, nil, err
	}
	return &d, req, tx.Commit()
}

// Delete удаляет спор. Когда открытых споров не остаётся, с заявки
// снимается заморозка, но статус не меняется: удаление не возобновляет
// ход заявки, это делает только закрытие.
func (r *DisputeRepository) Delete(ctx context.Context, disputeID uuid.UUID) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var d models.Dispute
	err = tx.GetContext(ctx, &d, `DELETE FROM disputes WHERE id = $1 RETURNING *`, disputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dispute repository: delete: %w", err)
	}

	req, err := clearFreezeIfResolved(ctx, tx, d.RequestID)
	if err != nil {
		return nil, err
	}
	return req, tx.Commit()
}

// unfreezeIfResolved снимает заморозку и возобновляет заявку, только когда
// по ней не осталось ни одного открытого спора.
func unfreezeIfResolved(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID, resumeStatus *string) (*models.Request, error) {
	req, err := getRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	open, err := countOpenDisputes(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return req, nil
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET status = $2, is_frozen = FALSE, freeze_reason = '', updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, requestID, resumeStatusFor(req, resumeStatus))
	if err != nil {
		return nil, fmt.Errorf("dispute repository: unfreeze request: %w", err)
	}
	return req, nil
}

// clearFreezeIfResolved снимает только флаг и причину заморозки, статус
// заявки остаётся прежним.
func clearFreezeIfResolved(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID) (*models.Request, error) {
	req, err := getRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	open, err := countOpenDisputes(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return req, nil
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET is_frozen = FALSE, freeze_reason = '', updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: clear freeze: %w", err)
	}
	return req, nil
}

func countOpenDisputes(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID) (int, error) {
	var open int
	err := tx.GetContext(ctx, &open,
		`SELECT COUNT(*) FROM disputes WHERE request_id = $1 AND is_open = TRUE`, requestID)
	if err != nil {
		return 0, fmt.Errorf("dispute repository: count open: %w", err)
	}
	return open, nil
}

// resumeStatusFor выбирает статус возобновления после закрытия последнего
// спора: явно переданный, иначе agreement_pending при когда-либо выбранном
// предложении, иначе new.
func resumeStatusFor(req *models.Request, resumeStatus *string) string {
	if resumeStatus != nil {
		return *resumeStatus
	}
	if req.OfferSelectedAt != nil {
		return models.RequestStatusAgreementPending
	}
	return models.RequestStatusNew
}
