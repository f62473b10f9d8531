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

type RequestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// RequestFilter описывает условия выборки списка заявок.
type RequestFilter struct {
	Status     string
	ClientID   *uuid.UUID
	EmployeeID *uuid.UUID
	Limit      int
	Offset     int
}

// Create сохраняет новую заявку в статусе new.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO requests (client_id, title, details, estimated_duration_days, estimated_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		req.ClientID, req.Title, req.Details, req.EstimatedDuration, req.EstimatedPrice, models.RequestStatusNew,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("request repository: create: %w", err)
	}
	req.Status = models.RequestStatusNew
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	err := r.db.GetContext(ctx, &req, `SELECT * FROM requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request repository: get by id: %w", err)
	}
	return &req, nil
}

// List возвращает заявки по фильтру, новые первыми.
func (r *RequestRepository) List(ctx context.Context, filter RequestFilter) ([]models.Request, error) {
	query := `SELECT * FROM requests WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		query += fmt.Sprintf(" AND assigned_employee_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("request repository: list: %w", err)
	}
	return requests, nil
}

// Cancel переводит заявку в статус cancelled, снимает исполнителя и SLA поля.
// Повторная отмена — no-op.
func (r *RequestRepository) Cancel(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == models.RequestStatusCancelled {
		return req, tx.Commit()
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET status = $2, assigned_employee_id = NULL, offer_selected_at = NULL,
		    agreement_due_at = NULL, sla_agreement_overdue = FALSE,
		    is_frozen = FALSE, freeze_reason = '', updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, models.RequestStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("request repository: cancel: %w", err)
	}
	return req, tx.Commit()
}

// ResetToNew возвращает заявку в статус new: отклоняет все незавершённые
// предложения, снимает исполнителя и SLA поля.
func (r *RequestRepository) ResetToNew(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE offers SET status = $2, updated_at = NOW()
		WHERE request_id = $1 AND status IN ($3, $4)
	`, id, models.OfferStatusRejected, models.OfferStatusPending, models.OfferStatusSelected)
	if err != nil {
		return nil, fmt.Errorf("request repository: reset offers: %w", err)
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET status = $2, assigned_employee_id = NULL, offer_selected_at = NULL,
		    agreement_due_at = NULL, sla_agreement_overdue = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, models.RequestStatusNew)
	if err != nil {
		return nil, fmt.Errorf("request repository: reset to new: %w", err)
	}
	return req, tx.Commit()
}

// Reassign меняет назначенного исполнителя, не трогая статус.
func (r *RequestRepository) Reassign(ctx context.Context, id, employeeID uuid.UUID) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests SET assigned_employee_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, employeeID)
	if err != nil {
		return nil, fmt.Errorf("request repository: reassign: %w", err)
	}
	return req, tx.Commit()
}

// FlagAgreementOverdue помечает просроченный дедлайн подачи соглашения.
// Возвращает true только если флаг был выставлен этим вызовом.
func (r *RequestRepository) FlagAgreementOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, id)
	if err != nil {
		return false, err
	}

	if req.Status != models.RequestStatusAgreementPending ||
		req.SLAAgreementOverdue || !req.AgreementOverdue(now) {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE requests SET sla_agreement_overdue = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("request repository: flag agreement overdue: %w", err)
	}
	return true, tx.Commit()
}

// ListAgreementDue возвращает заявки с наступившим дедлайном подачи
// соглашения, ещё не помеченные как просроченные.
func (r *RequestRepository) ListAgreementDue(ctx context.Context, now time.Time) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM requests
		WHERE status = $1 AND sla_agreement_overdue = FALSE
		  AND agreement_due_at IS NOT NULL AND agreement_due_at < $2
		ORDER BY agreement_due_at
	`, models.RequestStatusAgreementPending, now)
	if err != nil {
		return nil, fmt.Errorf("request repository: list agreement due: %w", err)
	}
	return requests, nil
}

// getRequestForUpdate читает заявку с блокировкой строки внутри транзакции.
func getRequestForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	err := tx.GetContext(ctx, &req, `SELECT * FROM requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request repository: lock request: %w", err)
	}
	return &req, nil
}
