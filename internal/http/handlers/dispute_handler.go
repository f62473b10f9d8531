package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Open POST /requests/:id/disputes
func (h *DisputeHandler) Open(c *gin.Context) {
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
		Title   string `json:"title" binding:"required"`
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "название спора обязательно")
		return
	}

	d, err := h.disputes.Open(c.Request.Context(), user, requestID, req.Title, req.Reason, req.Details)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, d)
}

// List GET /requests/:id/disputes
func (h *DisputeHandler) List(c *gin.Context) {
	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	disputes, err := h.disputes.ListByRequest(c.Request.Context(), requestID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// Close POST /disputes/:id/close
func (h *DisputeHandler) Close(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		ResumeStatus *string `json:"resume_status"`
	}
	_ = c.ShouldBindJSON(&req)

	d, err := h.disputes.Close(c.Request.Context(), user, disputeID, req.ResumeStatus)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// Delete DELETE /disputes/:id
func (h *DisputeHandler) Delete(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.Delete(c.Request.Context(), user, disputeID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
