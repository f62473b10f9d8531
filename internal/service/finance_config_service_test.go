package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
)

type mockFinanceSettingsRepo struct {
	mock.Mock
}

func (m *mockFinanceSettingsRepo) Get(ctx context.Context) (*models.FinanceSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinanceSettings), args.Error(1)
}

func (m *mockFinanceSettingsRepo) Update(ctx context.Context, feePercent, vatRate decimal.Decimal, safetyDays int) (*models.FinanceSettings, error) {
	args := m.Called(ctx, feePercent, vatRate, safetyDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinanceSettings), args.Error(1)
}

func settingsFixture(fee, vat string) *models.FinanceSettings {
	return &models.FinanceSettings{
		ID:                 1,
		PlatformFeePercent: mustDecimal(fee),
		VATRate:            mustDecimal(vat),
		PayoutSafetyDays:   3,
		UpdatedAt:          time.Now(),
	}
}

func mustDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// decimalArg сравнивает decimal аргумент мока по значению: сервис округляет
// ставки до четырёх знаков, и масштаб аргумента отличается от литерала.
func decimalArg(s string) interface{} {
	want := mustDecimal(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func TestFinanceConfigService_Get_Cached(t *testing.T) {
	repo := new(mockFinanceSettingsRepo)
	svc := NewFinanceConfigService(repo, 10*time.Minute)
	ctx := context.Background()

	repo.On("Get", ctx).Return(settingsFixture("0.10", "0.15"), nil).Once()

	first, err := svc.Get(ctx, false)
	assert.NoError(t, err)
	assert.True(t, first.PlatformFeePercent.Equal(mustDecimal("0.10")))

	// Второе чтение идёт из кэша, хранилище не трогается.
	second, err := svc.Get(ctx, false)
	assert.NoError(t, err)
	assert.True(t, second.VATRate.Equal(mustDecimal("0.15")))
	repo.AssertExpectations(t)
}

func TestFinanceConfigService_Get_ForceRefresh(t *testing.T) {
	repo := new(mockFinanceSettingsRepo)
	svc := NewFinanceConfigService(repo, 10*time.Minute)
	ctx := context.Background()

	repo.On("Get", ctx).Return(settingsFixture("0.10", "0.15"), nil).Twice()

	_, err := svc.Get(ctx, false)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, true)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestFinanceConfigService_Update_InvalidatesCache(t *testing.T) {
	repo := new(mockFinanceSettingsRepo)
	svc := NewFinanceConfigService(repo, 10*time.Minute)
	ctx := context.Background()

	repo.On("Get", ctx).Return(settingsFixture("0.10", "0.15"), nil).Once()
	_, err := svc.Get(ctx, false)
	assert.NoError(t, err)

	repo.On("Update", ctx, decimalArg("0.12"), decimalArg("0.15"), 3).
		Return(settingsFixture("0.12", "0.15"), nil).Once()
	_, err = svc.Update(ctx, mustDecimal("0.12"), mustDecimal("0.15"), 3)
	assert.NoError(t, err)

	// Сразу после записи чтение обязано вернуть свежие ставки.
	repo.On("Get", ctx).Return(settingsFixture("0.12", "0.15"), nil).Once()
	fresh, err := svc.Get(ctx, false)
	assert.NoError(t, err)
	assert.True(t, fresh.PlatformFeePercent.Equal(mustDecimal("0.12")))
	repo.AssertExpectations(t)
}

func TestFinanceConfigService_Update_RateOutOfRange(t *testing.T) {
	repo := new(mockFinanceSettingsRepo)
	svc := NewFinanceConfigService(repo, time.Minute)
	ctx := context.Background()

	_, err := svc.Update(ctx, mustDecimal("1.5"), mustDecimal("0.15"), 3)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Update(ctx, mustDecimal("0.10"), mustDecimal("-0.01"), 3)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Update(ctx, mustDecimal("0.10"), mustDecimal("0.15"), -1)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Update")
}
