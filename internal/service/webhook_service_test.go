package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookService_VerifySignature(t *testing.T) {
	svc := NewWebhookService("top-secret", nil)
	body := []byte(`{"invoice_id":"x"}`)

	assert.True(t, svc.VerifySignature(body, signBody("top-secret", body)))
	assert.False(t, svc.VerifySignature(body, signBody("wrong-secret", body)))
	assert.False(t, svc.VerifySignature([]byte(`{"invoice_id":"y"}`), signBody("top-secret", body)))
}

func TestWebhookService_VerifySignature_EmptySecret(t *testing.T) {
	svc := NewWebhookService("", nil)
	body := []byte("{}")

	// Без настроенного секрета вебхуки не принимаются вовсе.
	assert.False(t, svc.VerifySignature(body, signBody("", body)))
}

func TestWebhookService_HandlePaymentEvent_MarksPaid(t *testing.T) {
	settlements := new(mockSettlementRepo)
	settlement := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), new(mockPayoutCreator), NewAlertSink(10))
	svc := NewWebhookService("top-secret", settlement)
	ctx := context.Background()

	invoiceID := uuid.New()
	settlements.On("MarkInvoicePaid", ctx, invoiceID, "card", "psp-42", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice:      &models.Invoice{ID: invoiceID, Status: models.InvoiceStatusPaid},
			Transitioned: true,
		}, nil)

	body := []byte(`{"invoice_id":"` + invoiceID.String() + `","status":"PAYED","method":"card","ref":"psp-42"}`)
	res, err := svc.HandlePaymentEvent(ctx, body)
	assert.NoError(t, err)
	assert.True(t, res.Transitioned)
	settlements.AssertExpectations(t)
}

func TestWebhookService_HandlePaymentEvent_DefaultsMethod(t *testing.T) {
	settlements := new(mockSettlementRepo)
	settlement := newSettlementService(settlements, new(mockInvoiceRepo), new(mockAgreementReader), new(mockPayoutCreator), NewAlertSink(10))
	svc := NewWebhookService("top-secret", settlement)
	ctx := context.Background()

	invoiceID := uuid.New()
	settlements.On("MarkInvoicePaid", ctx, invoiceID, "gateway", "", mock.Anything, true).
		Return(&repository.SettlementResult{
			Invoice:      &models.Invoice{ID: invoiceID, Status: models.InvoiceStatusPaid},
			Transitioned: true,
		}, nil)

	body := []byte(`{"invoice_id":"` + invoiceID.String() + `","status":"paid"}`)
	_, err := svc.HandlePaymentEvent(ctx, body)
	assert.NoError(t, err)
	settlements.AssertExpectations(t)
}

func TestWebhookService_HandlePaymentEvent_BadPayload(t *testing.T) {
	svc := NewWebhookService("top-secret", nil)

	_, err := svc.HandlePaymentEvent(context.Background(), []byte("не json"))
	assert.Error(t, err)

	_, err = svc.HandlePaymentEvent(context.Background(), []byte(`{"status":"paid"}`))
	assert.Error(t, err)

	_, err = svc.HandlePaymentEvent(context.Background(), []byte(`{"invoice_id":"`+uuid.NewString()+`","status":"exploded"}`))
	assert.Error(t, err)
}

func TestWebhookService_HandlePaymentEvent_NonPaidStatus(t *testing.T) {
	svc := NewWebhookService("top-secret", nil)

	body := []byte(`{"invoice_id":"` + uuid.NewString() + `","status":"unpaid"}`)
	_, err := svc.HandlePaymentEvent(context.Background(), body)
	assert.True(t, apperror.IsPrecondition(err))
}
