package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute — претензия по заявке. Пока по заявке есть хотя бы один открытый
// спор, заявка заморожена: новые предложения, выбор предложения и
// автозавершение запрещены.
type Dispute struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	RequestID uuid.UUID  `db:"request_id" json:"request_id"`
	OpenedBy  uuid.UUID  `db:"opened_by" json:"opened_by"`
	Title     string     `db:"title" json:"title"`
	Reason    string     `db:"reason" json:"reason"`
	Details   string     `db:"details" json:"details,omitempty"`
	IsOpen    bool       `db:"is_open" json:"is_open"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ClosedAt  *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}
