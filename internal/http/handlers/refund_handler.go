package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type RefundHandler struct {
	refunds *service.RefundService
}

func NewRefundHandler(refunds *service.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// Create POST /invoices/:id/refunds
func (h *RefundHandler) Create(c *gin.Context) {
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
		Amount decimal.Decimal `json:"amount" binding:"required"`
		Reason string          `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма возврата обязательна")
		return
	}

	refund, err := h.refunds.Create(c.Request.Context(), user, invoiceID, req.Amount, req.Reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, refund)
}

// List GET /invoices/:id/refunds
func (h *RefundHandler) List(c *gin.Context) {
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

	refunds, err := h.refunds.ListByInvoice(c.Request.Context(), user, invoiceID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}
