package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type AgreementHandler struct {
	agreements *service.AgreementService
}

func NewAgreementHandler(agreements *service.AgreementService) *AgreementHandler {
	return &AgreementHandler{agreements: agreements}
}

// Create POST /requests/:id/agreement
func (h *AgreementHandler) Create(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Title       string          `json:"title"`
		TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма соглашения обязательна")
		return
	}

	agreement, err := h.agreements.Create(c.Request.Context(), user, requestID, req.Title, req.TotalAmount)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agreement)
}

// Get GET /agreements/:id
func (h *AgreementHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	agreement, err := h.agreements.GetByID(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, agreement)
}

// AddMilestone POST /agreements/:id/milestones
func (h *AgreementHandler) AddMilestone(c *gin.Context) {
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
		Title  string          `json:"title" binding:"required"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "название этапа обязательно")
		return
	}

	m, err := h.agreements.AddMilestone(c.Request.Context(), user, agreementID, req.Title, req.Amount)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// ListMilestones GET /agreements/:id/milestones
func (h *AgreementHandler) ListMilestones(c *gin.Context) {
	agreementID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestones, err := h.agreements.ListMilestones(c.Request.Context(), agreementID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// ApproveMilestone POST /milestones/:id/approve
func (h *AgreementHandler) ApproveMilestone(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	m, err := h.agreements.ApproveMilestone(c.Request.Context(), user, milestoneID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}
