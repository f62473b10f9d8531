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

type AgreementRepository struct {
	db *sqlx.DB
}

func NewAgreementRepository(db *sqlx.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// Create оформляет соглашение по заявке с выбранным предложением и переводит
// заявку в статус agreement_pending. Действующее соглашение по заявке может
// быть только одно (частичный уникальный индекс).
func (r *AgreementRepository) Create(ctx context.Context, agreement *models.Agreement) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := getRequestForUpdate(ctx, tx, agreement.RequestID)
	if err != nil {
		return nil, err
	}
	if req.IsFrozen {
		return nil, ErrRequestFrozen
	}
	if req.Status != models.RequestStatusOfferSelected {
		return nil, ErrRequestNotNew
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO agreements (request_id, employee_id, title, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at
	`, agreement.RequestID, agreement.EmployeeID, agreement.Title, agreement.TotalAmount, models.AgreementStatusActive,
	).Scan(&agreement.ID, &agreement.Status, &agreement.CreatedAt, &agreement.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("agreement repository: create: %w", err)
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, agreement.RequestID, models.RequestStatusAgreementPending)
	if err != nil {
		return nil, fmt.Errorf("agreement repository: update request: %w", err)
	}
	return req, tx.Commit()
}

// GetByID возвращает соглашение по идентификатору.
func (r *AgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	var agreement models.Agreement
	err := r.db.GetContext(ctx, &agreement, `SELECT * FROM agreements WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agreement repository: get by id: %w", err)
	}
	return &agreement, nil
}

// GetActiveByRequest возвращает действующее соглашение по заявке.
func (r *AgreementRepository) GetActiveByRequest(ctx context.Context, requestID uuid.UUID) (*models.Agreement, error) {
	var agreement models.Agreement
	err := r.db.GetContext(ctx, &agreement, `
		SELECT * FROM agreements WHERE request_id = $1 AND status IN ($2, $3)
	`, requestID, models.AgreementStatusDraft, models.AgreementStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agreement repository: get active by request: %w", err)
	}
	return &agreement, nil
}

// CreateMilestone добавляет этап соглашения.
func (r *AgreementRepository) CreateMilestone(ctx context.Context, m *models.Milestone) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO milestones (agreement_id, title, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.AgreementID, m.Title, m.Amount).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("agreement repository: create milestone: %w", err)
	}
	return nil
}

// ListMilestones возвращает этапы соглашения по порядку создания.
func (r *AgreementRepository) ListMilestones(ctx context.Context, agreementID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.SelectContext(ctx, &milestones,
		`SELECT * FROM milestones WHERE agreement_id = $1 ORDER BY created_at`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("agreement repository: list milestones: %w", err)
	}
	return milestones, nil
}

// GetMilestone возвращает этап по идентификатору.
func (r *AgreementRepository) GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	err := r.db.GetContext(ctx, &m, `SELECT * FROM milestones WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agreement repository: get milestone: %w", err)
	}
	return &m, nil
}

// ApproveMilestone помечает этап одобренным клиентом. Повторное одобрение — no-op.
func (r *AgreementRepository) ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	err := r.db.GetContext(ctx, &m, `
		UPDATE milestones
		SET is_approved = TRUE, approved_at = COALESCE(approved_at, NOW())
		WHERE id = $1
		RETURNING *
	`, milestoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agreement repository: approve milestone: %w", err)
	}
	return &m, nil
}
