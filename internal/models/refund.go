package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Refund — возврат клиенту по оплаченному счёту. Сумма всех неотменённых
// возвратов не может превышать итог счёта.
type Refund struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	InvoiceID uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason,omitempty"`
	Status    string          `db:"status" json:"status"`
	CreatedBy *uuid.UUID      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	SentAt    *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
}
