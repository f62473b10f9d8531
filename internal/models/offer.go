package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer — предложение исполнителя по заявке.
// Единственность выбранного предложения на заявку обеспечивает частичный
// уникальный индекс uq_offers_single_selected.
type Offer struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	RequestID            uuid.UUID       `db:"request_id" json:"request_id"`
	EmployeeID           uuid.UUID       `db:"employee_id" json:"employee_id"`
	ProposedPrice        decimal.Decimal `db:"proposed_price" json:"proposed_price"`
	ProposedDurationDays int             `db:"proposed_duration_days" json:"proposed_duration_days"`
	Note                 string          `db:"note" json:"note"`
	Status               string          `db:"status" json:"status"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// IsTerminal: из rejected/withdrawn предложение больше не меняется.
func (o *Offer) IsTerminal() bool {
	return o.Status == OfferStatusRejected || o.Status == OfferStatusWithdrawn
}
