package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/samilink/backend/internal/service"
)

const webhookTestSecret = "test-webhook-secret"

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewWebhookHandler(service.NewWebhookService(webhookTestSecret, nil))
	r.POST("/webhooks/payment", handler.PaymentEvent)
	return r
}

func TestWebhookHandler_PaymentEvent_MissingSignature(t *testing.T) {
	r := newWebhookRouter()

	body := []byte(`{"invoice_id":"b6a4f5ce-9d4e-4f8e-a1f0-2b3c4d5e6f70","status":"paid"}`)
	req, _ := http.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_PaymentEvent_WrongSignature(t *testing.T) {
	r := newWebhookRouter()

	body := []byte(`{"invoice_id":"b6a4f5ce-9d4e-4f8e-a1f0-2b3c4d5e6f70","status":"paid"}`)
	req, _ := http.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_PaymentEvent_BadPayload(t *testing.T) {
	r := newWebhookRouter()

	body := []byte(`not json at all`)
	req, _ := http.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signWebhookBody(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_PaymentEvent_IntermediateStatus(t *testing.T) {
	r := newWebhookRouter()

	body := []byte(`{"invoice_id":"b6a4f5ce-9d4e-4f8e-a1f0-2b3c4d5e6f70","status":"unpaid"}`)
	req, _ := http.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signWebhookBody(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
