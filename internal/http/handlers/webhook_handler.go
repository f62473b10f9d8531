package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

// SignatureHeader — заголовок с HMAC подписью тела вебхука.
const SignatureHeader = "X-Signature"

type WebhookHandler struct {
	webhooks *service.WebhookService
}

func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// PaymentEvent POST /webhooks/payment
// Подпись считается по сырому телу запроса, поэтому тело читается до
// любого разбора JSON.
func (h *WebhookHandler) PaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	if !h.webhooks.VerifySignature(body, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "подпись вебхука невалидна"})
		return
	}

	res, err := h.webhooks.HandlePaymentEvent(c.Request.Context(), body)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice_id":   res.Invoice.ID,
		"status":       res.Invoice.Status,
		"transitioned": res.Transitioned,
		"completed":    res.Completed,
	})
}
