package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request — заявка клиента на услугу.
// Жизненный цикл: new → offer_selected → agreement_pending → in_progress →
// (completed | disputed | cancelled). Заявки не удаляются физически:
// закрытие выражается статусом.
type Request struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	ClientID           uuid.UUID       `db:"client_id" json:"client_id"`
	AssignedEmployeeID *uuid.UUID      `db:"assigned_employee_id" json:"assigned_employee_id,omitempty"`
	Title              string          `db:"title" json:"title"`
	Details            string          `db:"details" json:"details"`
	EstimatedDuration  int             `db:"estimated_duration_days" json:"estimated_duration_days"`
	EstimatedPrice     decimal.Decimal `db:"estimated_price" json:"estimated_price"`
	Status             string          `db:"status" json:"status"`

	// Заморозка на время спора.
	IsFrozen     bool   `db:"is_frozen" json:"is_frozen"`
	FreezeReason string `db:"freeze_reason" json:"freeze_reason,omitempty"`

	// SLA подачи соглашения после выбора предложения.
	OfferSelectedAt     *time.Time `db:"offer_selected_at" json:"offer_selected_at,omitempty"`
	AgreementDueAt      *time.Time `db:"agreement_due_at" json:"agreement_due_at,omitempty"`
	SLAAgreementOverdue bool       `db:"sla_agreement_overdue" json:"sla_agreement_overdue"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// AgreementOverdue — просрочен ли дедлайн подачи соглашения.
func (r *Request) AgreementOverdue(now time.Time) bool {
	return r.AgreementDueAt != nil && now.After(*r.AgreementDueAt)
}

func (r *Request) IsDisputed() bool {
	return r.Status == RequestStatusDisputed || r.IsFrozen
}
