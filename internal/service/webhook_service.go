package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// PaymentEvent — событие подтверждения оплаты от платёжного шлюза.
type PaymentEvent struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	Ref       string    `json:"ref"`
}

// WebhookService проверяет подпись вебхука платёжного шлюза и проводит
// оплату. Повтор одного и того же события безопасен: каскад запускается
// только на фактическом переходе unpaid → paid.
type WebhookService struct {
	secret     []byte
	settlement *SettlementService
}

func NewWebhookService(secret string, settlement *SettlementService) *WebhookService {
	return &WebhookService{secret: []byte(secret), settlement: settlement}
}

// VerifySignature сверяет HMAC-SHA256 подпись сырого тела запроса.
// Сравнение выполняется за постоянное время.
func (s *WebhookService) VerifySignature(body []byte, signature string) bool {
	if len(s.secret) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandlePaymentEvent разбирает тело вебхука и проводит оплату счёта.
// Статус из внешней системы нормализуется до канонического значения.
func (s *WebhookService) HandlePaymentEvent(ctx context.Context, body []byte) (*repository.SettlementResult, error) {
	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "некорректное тело вебхука")
	}
	if event.InvoiceID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "вебхук без идентификатора счёта")
	}

	status, ok := models.CanonicalInvoiceStatus(event.Status)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "неизвестный статус оплаты")
	}
	if status != models.InvoiceStatusPaid {
		// Шлюз присылает и промежуточные статусы, нас интересует только оплата.
		return nil, apperror.New(apperror.ErrCodePrecondition, "событие не является подтверждением оплаты")
	}

	method := event.Method
	if method == "" {
		method = "gateway"
	}
	return s.settlement.MarkInvoicePaid(ctx, nil, event.InvoiceID, method, event.Ref, nil)
}
