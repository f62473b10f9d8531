package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/service"
)

type FinanceSettingsHandler struct {
	config *service.FinanceConfigService
}

func NewFinanceSettingsHandler(config *service.FinanceConfigService) *FinanceSettingsHandler {
	return &FinanceSettingsHandler{config: config}
}

// Get GET /finance/settings
func (h *FinanceSettingsHandler) Get(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if !user.IsFinance() {
		common.RespondError(c, apperror.ErrForbidden)
		return
	}

	force := c.Query("refresh") == "true"
	settings, err := h.config.Get(c.Request.Context(), force)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update PUT /finance/settings
func (h *FinanceSettingsHandler) Update(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if !user.IsFinance() {
		common.RespondError(c, apperror.ErrForbidden)
		return
	}

	var req struct {
		PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
		VATRate            decimal.Decimal `json:"vat_rate"`
		PayoutSafetyDays   int             `json:"payout_safety_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	settings, err := h.config.Update(c.Request.Context(), req.PlatformFeePercent, req.VATRate, req.PayoutSafetyDays)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
