package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/repository"
	"github.com/samilink/backend/internal/service"
)

type RequestHandler struct {
	requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Create POST /requests
func (h *RequestHandler) Create(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title          string          `json:"title" binding:"required"`
		Details        string          `json:"details"`
		DurationDays   int             `json:"estimated_duration_days" binding:"required,gt=0"`
		EstimatedPrice decimal.Decimal `json:"estimated_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "название и положительный срок обязательны")
		return
	}

	created, err := h.requests.Create(c.Request.Context(), user, req.Title, req.Details, req.DurationDays, req.EstimatedPrice)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get GET /requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// List GET /requests
func (h *RequestHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := repository.RequestFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("client_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.ClientID = &id
		}
	}
	if raw := c.Query("employee_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.EmployeeID = &id
		}
	}

	requests, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Cancel POST /requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, err := h.requests.AdminCancel(c.Request.Context(), user, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// ResetToNew POST /requests/:id/reset
func (h *RequestHandler) ResetToNew(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, err := h.requests.ResetToNew(c.Request.Context(), user, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Reassign POST /requests/:id/reassign
func (h *RequestHandler) Reassign(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		EmployeeID string `json:"employee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "employee_id обязателен")
		return
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		common.RespondBadRequest(c, "неверный employee_id")
		return
	}

	updated, err := h.requests.Reassign(c.Request.Context(), user, id, employeeID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// FlagOverdue POST /requests/:id/flag-overdue
func (h *RequestHandler) FlagOverdue(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	flagged, err := h.requests.FlagAgreementOverdue(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flagged": flagged})
}
