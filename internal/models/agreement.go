package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы соглашений
const (
	AgreementStatusDraft    = "draft"
	AgreementStatusActive   = "active"
	AgreementStatusClosed   = "closed"
	AgreementStatusCancelled = "cancelled"
)

// Agreement — оформленный договор по заявке, производный от выбранного
// предложения. У заявки не более одного действующего соглашения.
type Agreement struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	RequestID   uuid.UUID       `db:"request_id" json:"request_id"`
	EmployeeID  uuid.UUID       `db:"employee_id" json:"employee_id"`
	Title       string          `db:"title" json:"title"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Milestone — этап соглашения. Для автозавершения заявки важен только
// признак клиентского одобрения.
type Milestone struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	AgreementID uuid.UUID       `db:"agreement_id" json:"agreement_id"`
	Title       string          `db:"title" json:"title"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	IsApproved  bool            `db:"is_approved" json:"is_approved"`
	ApprovedAt  *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
