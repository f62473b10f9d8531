package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
)

// ReportRepository — производные read-only агрегаты для казначейства и
// отчётности. Первоисточником остаются сами сущности: агрегаты в любой
// момент пересчитываются из них.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// TreasurySnapshot — срез казначейства на момент запроса.
type TreasurySnapshot struct {
	Collected       decimal.Decimal `db:"collected" json:"collected"`                 // всего собрано с клиентов
	PayoutsPaid     decimal.Decimal `db:"payouts_paid" json:"payouts_paid"`           // всего выплачено исполнителям
	RefundsSent     decimal.Decimal `db:"refunds_sent" json:"refunds_sent"`           // всего возвращено клиентам
	VATCollected    decimal.Decimal `db:"vat_collected" json:"vat_collected"`         // НДС собрано
	VATRemitted     decimal.Decimal `db:"vat_remitted" json:"vat_remitted"`           // НДС перечислено в бюджет
	PendingPayables decimal.Decimal `db:"pending_payables" json:"pending_payables"`   // долг перед исполнителями
	Receivables     decimal.Decimal `db:"receivables" json:"outstanding_receivables"` // выставленные, но не оплаченные счета
	Balance         decimal.Decimal `json:"balance"`                                  // collected - payouts - refunds - vat_remitted
	VATStock        decimal.Decimal `json:"vat_stock"`                                // vat_collected - vat_remitted
	Liability       decimal.Decimal `json:"customer_liability"`                       // collected - payouts - refunds
}

// finalize считает производные показатели из собранных агрегатов.
func (s *TreasurySnapshot) finalize() {
	s.Balance = s.Collected.Sub(s.PayoutsPaid).Sub(s.RefundsSent).Sub(s.VATRemitted)
	s.VATStock = s.VATCollected.Sub(s.VATRemitted)
	s.Liability = s.Collected.Sub(s.PayoutsPaid).Sub(s.RefundsSent)
}

// Treasury считает срез казначейства из агрегатов по сущностям.
func (r *ReportRepository) Treasury(ctx context.Context) (*TreasurySnapshot, error) {
	var snap TreasurySnapshot
	err := r.db.GetContext(ctx, &snap, `
		SELECT
			COALESCE((SELECT SUM(total_amount) FROM invoices WHERE status = 'paid'), 0)      AS collected,
			COALESCE((SELECT SUM(amount) FROM payouts WHERE status = 'paid'), 0)             AS payouts_paid,
			COALESCE((SELECT SUM(amount) FROM refunds WHERE status <> 'cancelled'), 0)       AS refunds_sent,
			COALESCE((SELECT SUM(vat_amount) FROM invoices WHERE status = 'paid'), 0)        AS vat_collected,
			COALESCE((SELECT SUM(amount) FROM tax_remittances WHERE status = 'sent'), 0)     AS vat_remitted,
			COALESCE((SELECT SUM(amount) FROM payouts WHERE status = 'pending'), 0)          AS pending_payables,
			COALESCE((SELECT SUM(total_amount) FROM invoices WHERE status = 'unpaid'), 0)    AS receivables
	`)
	if err != nil {
		return nil, fmt.Errorf("report repository: treasury: %w", err)
	}

	snap.finalize()
	return &snap, nil
}

// StatusTotal — итоги счетов по одному статусу.
type StatusTotal struct {
	Status string          `db:"status" json:"status"`
	Count  int             `db:"count" json:"count"`
	Total  decimal.Decimal `db:"total" json:"total"`
}

// InvoiceTotalsByStatus возвращает количество и суммы счетов по статусам.
func (r *ReportRepository) InvoiceTotalsByStatus(ctx context.Context) ([]StatusTotal, error) {
	var totals []StatusTotal
	err := r.db.SelectContext(ctx, &totals, `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total
		FROM invoices GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("report repository: totals by status: %w", err)
	}
	return totals, nil
}

// CollectionRow — строка выгрузки поступлений за период.
type CollectionRow struct {
	InvoiceID   string          `db:"invoice_id"`
	AgreementID string          `db:"agreement_id"`
	Amount      decimal.Decimal `db:"amount"`
	VATAmount   decimal.Decimal `db:"vat_amount"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Method      string          `db:"method"`
	RefCode     string          `db:"ref_code"`
	PaidAt      time.Time       `db:"paid_at"`
}

// ListCollections возвращает оплаченные счета за период для CSV выгрузки.
func (r *ReportRepository) ListCollections(ctx context.Context, from, to time.Time) ([]CollectionRow, error) {
	var rows []CollectionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id AS invoice_id, agreement_id, amount, vat_amount, total_amount,
		       method, ref_code, paid_at
		FROM invoices
		WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2
		ORDER BY paid_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("report repository: list collections: %w", err)
	}
	return rows, nil
}

// ListLedger возвращает записи кассовой книги за период, новые первыми.
func (r *ReportRepository) ListLedger(ctx context.Context, from, to time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("report repository: list ledger: %w", err)
	}
	return entries, nil
}

// CreateTaxRemittance фиксирует перечисление НДС в бюджет и сразу проводит
// его: статус sent и запись в кассовую книгу.
func (r *ReportRepository) CreateTaxRemittance(ctx context.Context, t *models.TaxRemittance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO tax_remittances (amount, status, ref_code, note, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, status, created_at, sent_at
	`, t.Amount, models.TaxRemittanceStatusSent, t.RefCode, t.Note,
	).Scan(&t.ID, &t.Status, &t.CreatedAt, &t.SentAt)
	if err != nil {
		return fmt.Errorf("report repository: create tax remittance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_type, direction, amount, note)
		VALUES ($1, $2, $3, 'Перечисление НДС в бюджет')
	`, models.LedgerTypeTaxRemittance, models.LedgerDirectionOut, t.Amount)
	if err != nil {
		return fmt.Errorf("report repository: ledger entry: %w", err)
	}

	return tx.Commit()
}
