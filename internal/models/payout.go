package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payout — выплата исполнителю по завершённому и оплаченному соглашению.
// На соглашение допускается не более одной неотменённой выплаты
// (частичный уникальный индекс uq_payouts_single_active).
type Payout struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EmployeeID  uuid.UUID  `db:"employee_id" json:"employee_id"`
	AgreementID uuid.UUID  `db:"agreement_id" json:"agreement_id"`
	InvoiceID   *uuid.UUID `db:"invoice_id" json:"invoice_id,omitempty"`

	Amount decimal.Decimal `db:"amount" json:"amount"`
	Status string          `db:"status" json:"status"`

	// ReadyAt — момент, начиная с которого выплату можно провести
	// (окно безопасности после завершения заявки).
	ReadyAt  *time.Time `db:"ready_at" json:"ready_at,omitempty"`
	IssuedAt time.Time  `db:"issued_at" json:"issued_at"`
	PaidAt   *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	Method    string    `db:"method" json:"method,omitempty"`
	RefCode   string    `db:"ref_code" json:"ref_code,omitempty"`
	Note      string    `db:"note" json:"note,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
