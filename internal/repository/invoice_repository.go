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

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create сохраняет счёт. Производные суммы уже пересчитаны вызывающей
// стороной через money.Compute от зафиксированных ставок.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (agreement_id, milestone_id, amount,
			platform_fee_percent, vat_percent, platform_fee_amount, vat_amount,
			subtotal, total_amount, due_at, ref_code, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, status, issued_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		inv.AgreementID, inv.MilestoneID, inv.Amount,
		inv.PlatformFeePercent, inv.VATPercent, inv.PlatformFeeAmount, inv.VATAmount,
		inv.Subtotal, inv.TotalAmount, inv.DueAt, inv.RefCode, inv.CreatedBy,
	).Scan(&inv.ID, &inv.Status, &inv.IssuedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoice repository: create: %w", err)
	}
	return nil
}

// GetByID возвращает счёт по идентификатору.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoice repository: get by id: %w", err)
	}
	return &inv, nil
}

// ListByAgreement возвращает счета соглашения по порядку выставления.
func (r *InvoiceRepository) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices,
		`SELECT * FROM invoices WHERE agreement_id = $1 ORDER BY issued_at`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: list by agreement: %w", err)
	}
	return invoices, nil
}

// LatestPaidByAgreement возвращает последний оплаченный счёт соглашения.
func (r *InvoiceRepository) LatestPaidByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.GetContext(ctx, &inv, `
		SELECT * FROM invoices
		WHERE agreement_id = $1 AND status = $2
		ORDER BY paid_at DESC NULLS LAST
		LIMIT 1
	`, agreementID, models.InvoiceStatusPaid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoice repository: latest paid by agreement: %w", err)
	}
	return &inv, nil
}

// Cancel отменяет неоплаченный счёт. Оплаченный счёт отменить нельзя.
func (r *InvoiceRepository) Cancel(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	inv, err := getInvoiceForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusCancelled {
		return inv, tx.Commit()
	}
	if inv.Status != models.InvoiceStatusUnpaid {
		return nil, ErrInvoiceNotUnpaid
	}

	err = tx.GetContext(ctx, inv, `
		UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, models.InvoiceStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: cancel: %w", err)
	}
	return inv, tx.Commit()
}

// SetPaidRef записывает референс банковского перевода, который клиент
// ввёл сам. Счёт остаётся unpaid до подтверждения финансовым отделом.
func (r *InvoiceRepository) SetPaidRef(ctx context.Context, id uuid.UUID, paidRef string) (*models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	inv, err := getInvoiceForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusUnpaid {
		return nil, ErrInvoiceNotUnpaid
	}

	err = tx.GetContext(ctx, inv, `
		UPDATE invoices SET paid_ref = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, paidRef)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: set paid ref: %w", err)
	}
	return inv, tx.Commit()
}

// ListPendingTransfers возвращает неоплаченные счета с заявленным клиентом
// референсом перевода, ожидающие подтверждения.
func (r *InvoiceRepository) ListPendingTransfers(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices
		WHERE status = $1 AND paid_ref <> ''
		ORDER BY updated_at
	`, models.InvoiceStatusUnpaid)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: list pending transfers: %w", err)
	}
	return invoices, nil
}

func getInvoiceForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoice repository: lock invoice: %w", err)
	}
	return &inv, nil
}
