package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinanceSettings — единственная запись с финансовыми ставками платформы.
// Обе ставки хранятся в диапазоне [0,1] с точностью до четырёх знаков.
type FinanceSettings struct {
	ID                 int16           `db:"id" json:"-"`
	PlatformFeePercent decimal.Decimal `db:"platform_fee_percent" json:"platform_fee_percent"`
	VATRate            decimal.Decimal `db:"vat_rate" json:"vat_rate"`
	PayoutSafetyDays   int             `db:"payout_safety_days" json:"payout_safety_days"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}
