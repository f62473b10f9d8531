package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
)

// FinanceSettingsRepository описывает хранилище финансовых настроек.
type FinanceSettingsRepository interface {
	Get(ctx context.Context) (*models.FinanceSettings, error)
	Update(ctx context.Context, feePercent, vatRate decimal.Decimal, safetyDays int) (*models.FinanceSettings, error)
}

// FinanceConfigService — кэшированный доступ к финансовым ставкам.
// Настройки меняются редко, а читаются на каждом расчёте, поэтому чтение
// идёт через кэш с TTL. Запись инвалидирует кэш после коммита: следующее
// чтение гарантированно увидит новые ставки. Между коммитом и инвалидацией
// возможно короткое окно устаревшего чтения в параллельном запросе, это
// осознанный компромисс.
type FinanceConfigService struct {
	repo FinanceSettingsRepository
	ttl  time.Duration

	mu        sync.RWMutex
	cached    *models.FinanceSettings
	expiresAt time.Time
}

func NewFinanceConfigService(repo FinanceSettingsRepository, ttl time.Duration) *FinanceConfigService {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	return &FinanceConfigService{repo: repo, ttl: ttl}
}

// Get возвращает текущие ставки, из кэша пока не истёк TTL.
func (s *FinanceConfigService) Get(ctx context.Context, forceRefresh bool) (*models.FinanceSettings, error) {
	if !forceRefresh {
		s.mu.RLock()
		if s.cached != nil && time.Now().Before(s.expiresAt) {
			settings := *s.cached
			s.mu.RUnlock()
			return &settings, nil
		}
		s.mu.RUnlock()
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить финансовые настройки")
	}

	s.mu.Lock()
	s.cached = settings
	s.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()

	copied := *settings
	return &copied, nil
}

// Invalidate сбрасывает кэш. Следующее чтение пойдёт в хранилище.
func (s *FinanceConfigService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Update сохраняет новые ставки. Обе ставки должны лежать в [0,1],
// окно безопасности не может быть отрицательным.
func (s *FinanceConfigService) Update(ctx context.Context, feePercent, vatRate decimal.Decimal, safetyDays int) (*models.FinanceSettings, error) {
	one := decimal.NewFromInt(1)
	if feePercent.IsNegative() || feePercent.GreaterThan(one) {
		return nil, apperror.New(apperror.ErrCodeValidation, "комиссия платформы должна быть в диапазоне от 0 до 1")
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(one) {
		return nil, apperror.New(apperror.ErrCodeValidation, "ставка НДС должна быть в диапазоне от 0 до 1")
	}
	if safetyDays < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "окно безопасности не может быть отрицательным")
	}

	settings, err := s.repo.Update(ctx, feePercent.Round(4), vatRate.Round(4), safetyDays)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить финансовые настройки")
	}
	s.Invalidate()
	return settings, nil
}
