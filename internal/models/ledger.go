package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы записей кассовой книги
const (
	LedgerTypeClientPayment  = "client_payment"
	LedgerTypePayout         = "payout"
	LedgerTypeRefund         = "refund"
	LedgerTypeTaxRemittance  = "tax_remittance"
)

// Направления движения средств
const (
	LedgerDirectionIn  = "in"
	LedgerDirectionOut = "out"
)

// LedgerEntry — запись кассовой книги (append-only). Книга — вспомогательный
// журнал движения средств для отчётности; агрегаты по сущностям остаются
// первоисточником и пересчитываются из них в любой момент.
type LedgerEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	EntryType string          `db:"entry_type" json:"entry_type"`
	Direction string          `db:"direction" json:"direction"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`

	InvoiceID *uuid.UUID `db:"invoice_id" json:"invoice_id,omitempty"`
	PayoutID  *uuid.UUID `db:"payout_id" json:"payout_id,omitempty"`
	RefundID  *uuid.UUID `db:"refund_id" json:"refund_id,omitempty"`

	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	Note      string     `db:"note" json:"note,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Статусы перечислений НДС
const (
	TaxRemittanceStatusPending   = "pending"
	TaxRemittanceStatusSent      = "sent"
	TaxRemittanceStatusCancelled = "cancelled"
)

// TaxRemittance — перечисление собранного НДС в бюджет.
type TaxRemittance struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    string          `db:"status" json:"status"`
	RefCode   string          `db:"ref_code" json:"ref_code,omitempty"`
	Note      string          `db:"note" json:"note,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	SentAt    *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
}
