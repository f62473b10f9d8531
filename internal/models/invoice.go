package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/money"
)

// Invoice — платёжная единица по соглашению (возможно, по этапу).
// Производные поля (комиссия, НДС, итог) всегда пересчитываются через
// money.Compute от текущего amount и зафиксированных на счёте ставок —
// никогда «на глаз» и никогда не остаются устаревшими при сохранении.
type Invoice struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AgreementID uuid.UUID  `db:"agreement_id" json:"agreement_id"`
	MilestoneID *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`

	Amount             decimal.Decimal `db:"amount" json:"amount"`
	PlatformFeePercent decimal.Decimal `db:"platform_fee_percent" json:"platform_fee_percent"`
	VATPercent         decimal.Decimal `db:"vat_percent" json:"vat_percent"`
	PlatformFeeAmount  decimal.Decimal `db:"platform_fee_amount" json:"platform_fee_amount"`
	VATAmount          decimal.Decimal `db:"vat_amount" json:"vat_amount"`
	Subtotal           decimal.Decimal `db:"subtotal" json:"subtotal"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`

	Status   string     `db:"status" json:"status"`
	IssuedAt time.Time  `db:"issued_at" json:"issued_at"`
	DueAt    *time.Time `db:"due_at" json:"due_at,omitempty"`
	PaidAt   *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	Method  string `db:"method" json:"method,omitempty"`
	RefCode string `db:"ref_code" json:"ref_code,omitempty"`
	// Референс банковского перевода, который клиент вводит сам;
	// ожидает подтверждения финансовым отделом.
	PaidRef string `db:"paid_ref" json:"paid_ref,omitempty"`

	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// RecomputeTotals пересчитывает производные суммы от amount и ставок счёта.
func (i *Invoice) RecomputeTotals() {
	bd := money.Compute(i.Amount, i.PlatformFeePercent, i.VATPercent)
	i.PlatformFeeAmount = bd.PlatformFee
	i.VATAmount = bd.VATAmount
	i.Subtotal = money.Q2(i.Amount)
	i.TotalAmount = bd.ClientTotal
}

// IsOverdue — неоплаченный счёт с прошедшим сроком.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusUnpaid && i.DueAt != nil && now.After(*i.DueAt)
}
