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

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// AutoCreate создаёт выплату в статусе pending, если по соглашению ещё нет
// неотменённой выплаты. Возвращает false без ошибки, когда выплата уже
// существует: для автосоздания это штатный исход, а не сбой.
func (r *PayoutRepository) AutoCreate(ctx context.Context, p *models.Payout) (bool, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payouts (employee_id, agreement_id, invoice_id, amount, status, ready_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, issued_at, updated_at
	`, p.EmployeeID, p.AgreementID, p.InvoiceID, p.Amount, models.PayoutStatusPending, p.ReadyAt,
	).Scan(&p.ID, &p.IssuedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("payout repository: auto create: %w", err)
	}
	p.Status = models.PayoutStatusPending
	return true, nil
}

// GetByID возвращает выплату по идентификатору.
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payouts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payout repository: get by id: %w", err)
	}
	return &p, nil
}

// GetActiveByAgreement возвращает неотменённую выплату по соглашению.
func (r *PayoutRepository) GetActiveByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM payouts WHERE agreement_id = $1 AND status <> $2
	`, agreementID, models.PayoutStatusCancelled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payout repository: get active by agreement: %w", err)
	}
	return &p, nil
}

// ListByEmployee возвращает выплаты исполнителя, новые первыми.
func (r *PayoutRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.SelectContext(ctx, &payouts, `
		SELECT * FROM payouts WHERE employee_id = $1
		ORDER BY issued_at DESC LIMIT $2 OFFSET $3
	`, employeeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payout repository: list by employee: %w", err)
	}
	return payouts, nil
}

// ListByStatus возвращает выплаты в указанном статусе.
func (r *PayoutRepository) ListByStatus(ctx context.Context, status string) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.SelectContext(ctx, &payouts,
		`SELECT * FROM payouts WHERE status = $1 ORDER BY issued_at`, status)
	if err != nil {
		return nil, fmt.Errorf("payout repository: list by status: %w", err)
	}
	return payouts, nil
}

// MarkPaid проводит выплату: pending → paid, запись в кассовую книгу.
func (r *PayoutRepository) MarkPaid(ctx context.Context, id uuid.UUID, method, ref string, now time.Time) (*models.Payout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := getPayoutForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusPending {
		return nil, ErrPayoutNotPending
	}

	err = tx.GetContext(ctx, p, `
		UPDATE payouts
		SET status = $2, paid_at = $3, method = $4, ref_code = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, models.PayoutStatusPaid, now, method, ref)
	if err != nil {
		return nil, fmt.Errorf("payout repository: mark paid: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_type, direction, amount, payout_id, note)
		VALUES ($1, $2, $3, $4, 'Выплата исполнителю')
	`, models.LedgerTypePayout, models.LedgerDirectionOut, p.Amount, p.ID)
	if err != nil {
		return nil, fmt.Errorf("payout repository: ledger entry: %w", err)
	}

	return p, tx.Commit()
}

// Cancel отменяет выплату. Проведённую выплату отменить нельзя.
func (r *PayoutRepository) Cancel(ctx context.Context, id uuid.UUID, note string) (*models.Payout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := getPayoutForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PayoutStatusCancelled {
		return p, tx.Commit()
	}
	if p.Status != models.PayoutStatusPending {
		return nil, ErrPayoutNotPending
	}

	err = tx.GetContext(ctx, p, `
		UPDATE payouts SET status = $2, note = $3, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, models.PayoutStatusCancelled, note)
	if err != nil {
		return nil, fmt.Errorf("payout repository: cancel: %w", err)
	}
	return p, tx.Commit()
}

func getPayoutForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := tx.GetContext(ctx, &p, `SELECT * FROM payouts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payout repository: lock payout: %w", err)
	}
	return &p, nil
}
