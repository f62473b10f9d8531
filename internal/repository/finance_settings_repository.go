package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
)

type FinanceSettingsRepository struct {
	db *sqlx.DB
}

func NewFinanceSettingsRepository(db *sqlx.DB) *FinanceSettingsRepository {
	return &FinanceSettingsRepository{db: db}
}

// Get возвращает единственную запись финансовых настроек, создавая её
// с дефолтными ставками при первом обращении.
func (r *FinanceSettingsRepository) Get(ctx context.Context) (*models.FinanceSettings, error) {
	var settings models.FinanceSettings
	query := `
		INSERT INTO finance_settings (id)
		VALUES (1)
		ON CONFLICT (id) DO UPDATE SET id = finance_settings.id
		RETURNING id, platform_fee_percent, vat_rate, payout_safety_days, updated_at
	`
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("finance settings repository: get: %w", err)
	}
	return &settings, nil
}

// Update сохраняет новые ставки. Диапазоны проверяет сервисный слой,
// ограничения базы служат последней линией защиты.
func (r *FinanceSettingsRepository) Update(ctx context.Context, feePercent, vatRate decimal.Decimal, safetyDays int) (*models.FinanceSettings, error) {
	var settings models.FinanceSettings
	query := `
		UPDATE finance_settings
		SET platform_fee_percent = $1, vat_rate = $2, payout_safety_days = $3, updated_at = NOW()
		WHERE id = 1
		RETURNING id, platform_fee_percent, vat_rate, payout_safety_days, updated_at
	`
	if err := r.db.GetContext(ctx, &settings, query, feePercent, vatRate, safetyDays); err != nil {
		return nil, fmt.Errorf("finance settings repository: update: %w", err)
	}
	return &settings, nil
}
