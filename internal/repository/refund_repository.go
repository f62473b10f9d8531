package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
)

type RefundRepository struct {
	db *sqlx.DB
}

func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create проводит возврат по оплаченному счёту. В одной транзакции:
// проверка лимита (сумма неотменённых возвратов не превышает итог счёта),
// отмена ещё не проведённой выплаты по соглашению и запись в кассовую книгу.
func (r *RefundRepository) Create(ctx context.Context, refund *models.Refund) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	inv, err := getInvoiceForUpdate(ctx, tx, refund.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status != models.InvoiceStatusPaid {
		return ErrInvoiceNotPaid
	}

	var refunded decimal.Decimal
	err = tx.GetContext(ctx, &refunded, `
		SELECT COALESCE(SUM(amount), 0) FROM refunds
		WHERE invoice_id = $1 AND status <> $2
	`, refund.InvoiceID, models.RefundStatusCancelled)
	if err != nil {
		return fmt.Errorf("refund repository: sum refunds: %w", err)
	}
	if refunded.Add(refund.Amount).GreaterThan(inv.TotalAmount) {
		return ErrRefundExceedsInvoice
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO refunds (invoice_id, amount, reason, status, created_by, sent_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, status, created_at, sent_at
	`, refund.InvoiceID, refund.Amount, refund.Reason, models.RefundStatusSent, refund.CreatedBy,
	).Scan(&refund.ID, &refund.Status, &refund.CreatedAt, &refund.SentAt)
	if err != nil {
		return fmt.Errorf("refund repository: create: %w", err)
	}

	// Непроведённая выплата по соглашению отменяется: деньги возвращаются
	// клиенту, исполнителю по этому соглашению платить уже нечего.
	_, err = tx.ExecContext(ctx, `
		UPDATE payouts SET status = $2, note = 'Отменена возвратом клиенту', updated_at = NOW()
		WHERE agreement_id = $1 AND status = $3
	`, inv.AgreementID, models.PayoutStatusCancelled, models.PayoutStatusPending)
	if err != nil {
		return fmt.Errorf("refund repository: cancel payout: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_type, direction, amount, invoice_id, refund_id, created_by, note)
		VALUES ($1, $2, $3, $4, $5, $6, 'Возврат клиенту')
	`, models.LedgerTypeRefund, models.LedgerDirectionOut, refund.Amount, refund.InvoiceID, refund.ID, refund.CreatedBy)
	if err != nil {
		return fmt.Errorf("refund repository: ledger entry: %w", err)
	}

	return tx.Commit()
}

// ListByInvoice возвращает возвраты по счёту.
func (r *RefundRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.SelectContext(ctx, &refunds,
		`SELECT * FROM refunds WHERE invoice_id = $1 ORDER BY created_at DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("refund repository: list by invoice: %w", err)
	}
	return refunds, nil
}
