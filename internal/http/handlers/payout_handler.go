package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type PayoutHandler struct {
	payouts *service.PayoutService
}

func NewPayoutHandler(payouts *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// Eligibility GET /agreements/:id/payout-eligibility
func (h *PayoutHandler) Eligibility(c *gin.Context) {
	agreementID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	elig, err := h.payouts.IsEligible(c.Request.Context(), agreementID, time.Now())
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, elig)
}

// Disburse POST /payouts/:id/disburse
func (h *PayoutHandler) Disburse(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	payoutID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Method string `json:"method" binding:"required"`
		Ref    string `json:"ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "метод выплаты обязателен")
		return
	}

	payout, err := h.payouts.Disburse(c.Request.Context(), user, payoutID, req.Method, req.Ref)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payout)
}

// Cancel POST /payouts/:id/cancel
func (h *PayoutHandler) Cancel(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	payoutID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&req)

	payout, err := h.payouts.Cancel(c.Request.Context(), user, payoutID, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payout)
}

// Get GET /payouts/:id
func (h *PayoutHandler) Get(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	payoutID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payout, err := h.payouts.GetByID(c.Request.Context(), user, payoutID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payout)
}

// ListMy GET /payouts/my
func (h *PayoutHandler) ListMy(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	payouts, err := h.payouts.ListByEmployee(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// ListPending GET /payouts/pending
func (h *PayoutHandler) ListPending(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	payouts, err := h.payouts.ListPending(c.Request.Context(), user)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
