package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// Периоды выгрузки поступлений.
const (
	PeriodToday  = "today"
	Period7Days  = "7d"
	Period30Days = "30d"
	PeriodCustom = "custom"
)

// ReportRepository описывает агрегатные чтения для казначейства.
type ReportRepository interface {
	Treasury(ctx context.Context) (*repository.TreasurySnapshot, error)
	InvoiceTotalsByStatus(ctx context.Context) ([]repository.StatusTotal, error)
	ListCollections(ctx context.Context, from, to time.Time) ([]repository.CollectionRow, error)
	ListLedger(ctx context.Context, from, to time.Time) ([]models.LedgerEntry, error)
	CreateTaxRemittance(ctx context.Context, t *models.TaxRemittance) error
}

// ReportService — отчётность казначейства: срезы, выгрузки, перечисления НДС.
type ReportService struct {
	reports ReportRepository
	alerts  *AlertSink
}

func NewReportService(reports ReportRepository, alerts *AlertSink) *ReportService {
	return &ReportService{reports: reports, alerts: alerts}
}

// Treasury возвращает срез казначейства.
func (s *ReportService) Treasury(ctx context.Context, actor *models.User) (*repository.TreasurySnapshot, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.reports.Treasury(ctx)
}

// InvoiceTotals возвращает итоги счетов по статусам.
func (s *ReportService) InvoiceTotals(ctx context.Context, actor *models.User) ([]repository.StatusTotal, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.reports.InvoiceTotalsByStatus(ctx)
}

// ResolvePeriod переводит именованный период в границы [from, to).
// Для custom обе даты обязательны.
func ResolvePeriod(period string, from, to *time.Time, now time.Time) (time.Time, time.Time, error) {
	end := now
	switch period {
	case PeriodToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, end, nil
	case Period7Days:
		return now.AddDate(0, 0, -7), end, nil
	case Period30Days, "":
		return now.AddDate(0, 0, -30), end, nil
	case PeriodCustom:
		if from == nil || to == nil {
			return time.Time{}, time.Time{}, errors.New("для custom периода нужны обе даты")
		}
		return *from, *to, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("неизвестный период %q", period)
}

// ExportCollectionsCSV выгружает оплаченные счета за период в CSV.
func (s *ReportService) ExportCollectionsCSV(ctx context.Context, actor *models.User, period string, from, to *time.Time) ([]byte, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}

	start, end, err := ResolvePeriod(period, from, to, time.Now())
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	rows, err := s.reports.ListCollections(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"invoice_id", "agreement_id", "amount", "vat_amount", "total_amount", "method", "ref_code", "paid_at"})
	for _, row := range rows {
		_ = w.Write([]string{
			row.InvoiceID,
			row.AgreementID,
			row.Amount.StringFixed(2),
			row.VATAmount.StringFixed(2),
			row.TotalAmount.StringFixed(2),
			row.Method,
			row.RefCode,
			row.PaidAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сформировать выгрузку")
	}
	return buf.Bytes(), nil
}

// ListLedger возвращает записи кассовой книги за период.
func (s *ReportService) ListLedger(ctx context.Context, actor *models.User, period string, from, to *time.Time) ([]models.LedgerEntry, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	start, end, err := ResolvePeriod(period, from, to, time.Now())
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.reports.ListLedger(ctx, start, end)
}

// RemitTax фиксирует перечисление НДС в бюджет. Перечислить больше, чем
// накоплено, нельзя.
func (s *ReportService) RemitTax(ctx context.Context, actor *models.User, amount decimal.Decimal, refCode, note string) (*models.TaxRemittance, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма перечисления должна быть положительной")
	}

	snap, err := s.reports.Treasury(ctx)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(snap.VATStock) {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма превышает накопленный НДС")
	}

	t := &models.TaxRemittance{
		Amount:  amount.Round(2),
		RefCode: refCode,
		Note:    note,
	}
	if err := s.reports.CreateTaxRemittance(ctx, t); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось провести перечисление НДС")
	}
	return t, nil
}

// ListAlerts возвращает операционные предупреждения.
func (s *ReportService) ListAlerts(actor *models.User) ([]Alert, error) {
	if !actor.IsFinance() {
		return nil, apperror.ErrForbidden
	}
	return s.alerts.List(), nil
}
