package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type InvoiceHandler struct {
	settlement *service.SettlementService
}

func NewInvoiceHandler(settlement *service.SettlementService) *InvoiceHandler {
	return &InvoiceHandler{settlement: settlement}
}

// Create POST /agreements/:id/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	agreementID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		MilestoneID *string         `json:"milestone_id"`
		Amount      decimal.Decimal `json:"amount" binding:"required"`
		DueAt       *time.Time      `json:"due_at"`
		RefCode     string          `json:"ref_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма счёта обязательна")
		return
	}

	var milestoneID *uuid.UUID
	if req.MilestoneID != nil {
		id, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			common.RespondBadRequest(c, "неверный milestone_id")
			return
		}
		milestoneID = &id
	}

	inv, err := h.settlement.CreateInvoice(c.Request.Context(), user, agreementID, milestoneID, req.Amount, req.DueAt, req.RefCode)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// Get GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	inv, err := h.settlement.GetInvoice(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// ListByAgreement GET /agreements/:id/invoices
func (h *InvoiceHandler) ListByAgreement(c *gin.Context) {
	agreementID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoices, err := h.settlement.ListInvoices(c.Request.Context(), agreementID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// MarkPaid POST /invoices/:id/pay
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	invoiceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Method string     `json:"method" binding:"required"`
		Ref    string     `json:"ref"`
		PaidAt *time.Time `json:"paid_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "метод оплаты обязателен")
		return
	}

	res, err := h.settlement.MarkInvoicePaid(c.Request.Context(), user, invoiceID, req.Method, req.Ref, req.PaidAt)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Cancel POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	invoiceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	inv, err := h.settlement.CancelInvoice(c.Request.Context(), user, invoiceID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// RecordTransferRef POST /invoices/:id/transfer-ref
func (h *InvoiceHandler) RecordTransferRef(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	invoiceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		PaidRef string `json:"paid_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "paid_ref обязателен")
		return
	}

	inv, err := h.settlement.RecordTransferRef(c.Request.Context(), user, invoiceID, req.PaidRef)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// ConfirmTransfer POST /invoices/:id/confirm-transfer
func (h *InvoiceHandler) ConfirmTransfer(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	invoiceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	res, err := h.settlement.ConfirmTransfer(c.Request.Context(), user, invoiceID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ListPendingTransfers GET /invoices/pending-transfers
func (h *InvoiceHandler) ListPendingTransfers(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	invoices, err := h.settlement.ListPendingTransfers(c.Request.Context(), user)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
