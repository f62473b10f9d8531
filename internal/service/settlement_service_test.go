package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/logger"
	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type mockSettlementRepo struct {
	mock.Mock
}

func (m *mockSettlementRepo) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, method, ref string, paidAt time.Time, autocomplete bool) (*repository.SettlementResult, error) {
	args := m.Called(ctx, invoiceID, method, ref, paidAt, autocomplete)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SettlementResult), args.Error(1)
}

func (m *mockSettlementRepo) TryAutoComplete(ctx context.Context, agreementID uuid.UUID, now time.Time) (*models.Request, bool, error) {
	args := m.Called(ctx, agreementID, now)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Request), args.Bool(1), args.Error(2)
}

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]models.Invoice, error) {
	args := m.Called(ctx, agreementID)
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) LatestPaidByAgreement(ctx context.Context, agreementID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Cancel(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) SetPaidRef(ctx context.Context, id uuid.UUID, paidRef string) (*models.Invoice, error) {
	args := m.Called(ctx, id, paidRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) ListPendingTransfers(ctx context.Context) ([]models.Invoice, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Invoice), args.Error(1)
}

type mockAgreementReader struct {
	mock.Mock
}

func (m *mockAgreementReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Agreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agreement), args.Error(1)
}

type mockPayoutCreator struct {
	mock.Mock
}

func (m *mockPayoutCreator) AutoCreate(ctx context.Context, p *models.Payout) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	m.Called(ctx, userID, event, data)
}

// noopNotifier для тестов, где уведомления не интересны.
type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {}

func financeActor() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleFinance}
}

func newConfigService(fee, vat string, safetyDays int) *FinanceConfigService {
	repo := new(mockFinanceSettingsRepo)
	settings := settingsFixture(fee, vat)
	settings.PayoutSafetyDays = safetyDays
	repo.On("Get", mock.Anything).Return(settings, nil)
	return NewFinanceConfigService(repo, time.Minute)
}

func newSettlementService(settlements *mockSettlementRepo, invoices *mockInvoiceRepo, agreements *mockAgreementReader, payouts *mockPayoutCreator, alerts *AlertSink) *SettlementService {
	return NewSettlementService(
		settlements, invoices, agreements, payouts,
		newConfigService("0.10", "0.15", 3),
		noopNotifier{}, alerts, true, 3,
	)
}

func TestSettlementService_CreateInvoice_SnapshotsRates(t *testing.T) {
	invoices := new(mockInvoiceRepo)
	agreements := new(mockAgreementReader)
	svc := newSettlementService(new(mockSettlementRepo), invoices, agreements, new(mockPayoutCreator), NewAlertSink(10))
	ctx := context.Background()

	agreementID := uuid.New()
	agreements.On("GetByID", ctx, agreementID).Return(&models.Agreement{ID: agreementID}, nil)
	invoices.On("Create", ctx, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.PlatformFeeAmount.Equal(mustDecimal("20")) &&
			inv.VATAmount.Equal(mustDecimal("30")) &&
			inv.TotalAmount.Equal(mustDecimal("230"))
	})).Return(nil)

	inv, err := svc.CreateInvoice(ctx, financeActor(), agreementID, nil, mustDecimal("200"), nil, "INV-1")
	assert.NoError(t, err)
	assert.True(t, inv.PlatformFeePercent.Equal(mustDecimal("0.10")))
	invoices.AssertExpectations(t)
}

func TestSettlementService_CreateInvoice_Forbidden(t *testing.T) {
	svc := newSettlementService(new(mockSettlementRepo), new(mockInvoiceRepo), new(mockAgreementReader), new(mockPayoutCreator), NewAlertSink(10))

	client := &models.User{ID: uuid.New(), Role: models.RoleClient}
	_, err := svc.CreateInvoice(context.Background(), client, uuid.New(), nil, mustDecimal("100"), nil, "")
	assert.True(t, apperror.IsForbidden(err))
}

func TestSettlementService_MarkInvoicePaid_AlreadyPaidNoCascade(t *testing.T) {
	settlements := new(mockSettlementRepo)
	payouts := new(mockPayoutCreator)
	svc := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), payouts, NewAlertSink(10))
	ctx := context.Background()

	invoiceID := uuid.New()
	settlements.On("MarkInvoicePaid", ctx, invoiceID, "card", "ref", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice:      &models.Invoice{ID: invoiceID, Status: models.InvoiceStatusPaid},
			Transitioned: false,
		}, nil)

	res, err := svc.MarkInvoicePaid(ctx, financeActor(), invoiceID, "card", "ref", nil)
	assert.NoError(t, err)
	assert.False(t, res.Transitioned)
	payouts.AssertNotCalled(t, "AutoCreate")
}

func TestSettlementService_MarkInvoicePaid_CompletedCreatesPayout(t *testing.T) {
	settlements := new(mockSettlementRepo)
	payouts := new(mockPayoutCreator)
	svc := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), payouts, NewAlertSink(10))
	ctx := context.Background()

	employeeID := uuid.New()
	completedAt := time.Now().Add(-time.Hour)
	agreement := &models.Agreement{ID: uuid.New(), EmployeeID: employeeID, TotalAmount: mustDecimal("100")}
	invoice := &models.Invoice{
		ID:                 uuid.New(),
		AgreementID:        agreement.ID,
		PlatformFeePercent: mustDecimal("0.10"),
		VATPercent:         mustDecimal("0.15"),
	}
	request := &models.Request{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		Status:      models.RequestStatusCompleted,
		CompletedAt: &completedAt,
	}

	settlements.On("MarkInvoicePaid", ctx, invoice.ID, "card", "ref", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice: invoice, Agreement: agreement, Request: request,
			Transitioned: true, Completed: true,
		}, nil)

	payouts.On("AutoCreate", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		return p.EmployeeID == employeeID &&
			p.Amount.Equal(mustDecimal("90")) &&
			p.ReadyAt != nil &&
			p.ReadyAt.Equal(completedAt.Add(3*24*time.Hour))
	})).Return(true, nil)

	res, err := svc.MarkInvoicePaid(ctx, financeActor(), invoice.ID, "card", "ref", nil)
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	payouts.AssertExpectations(t)
}

func TestSettlementService_MarkInvoicePaid_FrozenRequestNotCompleted(t *testing.T) {
	settlements := new(mockSettlementRepo)
	payouts := new(mockPayoutCreator)
	svc := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), payouts, NewAlertSink(10))
	ctx := context.Background()

	agreement := &models.Agreement{ID: uuid.New(), EmployeeID: uuid.New(), TotalAmount: mustDecimal("100")}
	invoice := &models.Invoice{
		ID:                 uuid.New(),
		AgreementID:        agreement.ID,
		Status:             models.InvoiceStatusPaid,
		PlatformFeePercent: mustDecimal("0.10"),
		VATPercent:         mustDecimal("0.15"),
	}
	frozen := &models.Request{ID: uuid.New(), ClientID: uuid.New(), Status: models.RequestStatusDisputed, IsFrozen: true}

	// Последний счёт оплачен, но заявка под спором: оплата проходит,
	// автозавершения и выплаты нет.
	settlements.On("MarkInvoicePaid", ctx, invoice.ID, "card", "ref", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice: invoice, Agreement: agreement, Request: frozen,
			Transitioned: true, Completed: false,
		}, nil)

	res, err := svc.MarkInvoicePaid(ctx, financeActor(), invoice.ID, "card", "ref", nil)
	assert.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.False(t, res.Completed)
	payouts.AssertNotCalled(t, "AutoCreate")
}

func TestSettlementService_MarkInvoicePaid_PayoutFailureDoesNotFail(t *testing.T) {
	settlements := new(mockSettlementRepo)
	payouts := new(mockPayoutCreator)
	alerts := NewAlertSink(10)
	svc := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), payouts, alerts)
	ctx := context.Background()

	agreement := &models.Agreement{ID: uuid.New(), EmployeeID: uuid.New(), TotalAmount: mustDecimal("100")}
	invoice := &models.Invoice{ID: uuid.New(), AgreementID: agreement.ID, PlatformFeePercent: mustDecimal("0.10"), VATPercent: mustDecimal("0.15")}
	request := &models.Request{ID: uuid.New(), ClientID: uuid.New(), Status: models.RequestStatusCompleted}

	settlements.On("MarkInvoicePaid", ctx, invoice.ID, "card", "", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice: invoice, Agreement: agreement, Request: request,
			Transitioned: true, Completed: true,
		}, nil)
	payouts.On("AutoCreate", ctx, mock.Anything).Return(false, errors.New("база недоступна"))

	// Оплата проведена, сбой выплаты не возвращается вызывающему.
	res, err := svc.MarkInvoicePaid(ctx, financeActor(), invoice.ID, "card", "", nil)
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Len(t, alerts.List(), 1)
}

func TestSettlementService_MarkInvoicePaid_ZeroNetSkipsPayout(t *testing.T) {
	settlements := new(mockSettlementRepo)
	payouts := new(mockPayoutCreator)
	svc := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), payouts, NewAlertSink(10))
	ctx := context.Background()

	agreement := &models.Agreement{ID: uuid.New(), EmployeeID: uuid.New(), TotalAmount: mustDecimal("0")}
	invoice := &models.Invoice{ID: uuid.New(), AgreementID: agreement.ID, PlatformFeePercent: mustDecimal("0.10"), VATPercent: mustDecimal("0.15")}
	request := &models.Request{ID: uuid.New(), ClientID: uuid.New(), Status: models.RequestStatusCompleted}

	settlements.On("MarkInvoicePaid", ctx, invoice.ID, "card", "", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice: invoice, Agreement: agreement, Request: request,
			Transitioned: true, Completed: true,
		}, nil)

	_, err := svc.MarkInvoicePaid(ctx, financeActor(), invoice.ID, "card", "", nil)
	assert.NoError(t, err)
	payouts.AssertNotCalled(t, "AutoCreate")
}

func TestSettlementService_MarkInvoicePaid_Forbidden(t *testing.T) {
	svc := newSettlementService(new(mockSettlementRepo), new(mockInvoiceRepo), new(mockAgreementReader), new(mockPayoutCreator), NewAlertSink(10))

	employee := &models.User{ID: uuid.New(), Role: models.RoleEmployee}
	_, err := svc.MarkInvoicePaid(context.Background(), employee, uuid.New(), "card", "", nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestSettlementService_ConfirmTransfer_NoRef(t *testing.T) {
	invoices := new(mockInvoiceRepo)
	svc := newSettlementService(new(mockSettlementRepo), invoices, new(mockAgreementReader), new(mockPayoutCreator), NewAlertSink(10))
	ctx := context.Background()

	invoiceID := uuid.New()
	invoices.On("GetByID", ctx, invoiceID).Return(&models.Invoice{ID: invoiceID, Status: models.InvoiceStatusUnpaid}, nil)

	_, err := svc.ConfirmTransfer(ctx, financeActor(), invoiceID)
	assert.True(t, apperror.IsPrecondition(err))
}

func TestSettlementService_TryAutoComplete_Disabled(t *testing.T) {
	settlements := new(mockSettlementRepo)
	svc := NewSettlementService(
		settlements, new(mockInvoiceRepo), new(mockAgreementReader), new(mockPayoutCreator),
		newConfigService("0.10", "0.15", 3), noopNotifier{}, NewAlertSink(10), false, 3,
	)

	svc.TryAutoComplete(context.Background(), uuid.New())
	settlements.AssertNotCalled(t, "TryAutoComplete")
}
