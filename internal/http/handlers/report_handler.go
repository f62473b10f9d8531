package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Treasury GET /reports/treasury
func (h *ReportHandler) Treasury(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	snapshot, err := h.reports.Treasury(c.Request.Context(), user)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// InvoiceTotals GET /reports/invoices
func (h *ReportHandler) InvoiceTotals(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	totals, err := h.reports.InvoiceTotals(c.Request.Context(), user)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

// periodBounds читает period/from/to из query параметров.
func periodBounds(c *gin.Context) (string, *time.Time, *time.Time) {
	period := c.Query("period")
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			to = &t
		}
	}
	return period, from, to
}

// CollectionsCSV GET /reports/collections.csv
func (h *ReportHandler) CollectionsCSV(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	period, from, to := periodBounds(c)
	data, err := h.reports.ExportCollectionsCSV(c.Request.Context(), user, period, from, to)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="collections.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Ledger GET /reports/ledger
func (h *ReportHandler) Ledger(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	period, from, to := periodBounds(c)
	entries, err := h.reports.ListLedger(c.Request.Context(), user, period, from, to)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// RemitTax POST /reports/tax-remittances
func (h *ReportHandler) RemitTax(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Amount  decimal.Decimal `json:"amount" binding:"required"`
		RefCode string          `json:"ref_code"`
		Note    string          `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма перечисления обязательна")
		return
	}

	t, err := h.reports.RemitTax(c.Request.Context(), user, req.Amount, req.RefCode, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// Alerts GET /reports/alerts
func (h *ReportHandler) Alerts(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	alerts, err := h.reports.ListAlerts(user)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
