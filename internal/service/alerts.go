package service

import (
	"sync"
	"time"
)

// Alert — операционное предупреждение для дежурного: сбой побочного
// эффекта, который не откатывает основную транзакцию (например, не
// создалась выплата после успешной оплаты).
type Alert struct {
	Time    time.Time         `json:"time"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AlertSink хранит последние операционные предупреждения в памяти.
// Список ограничен, старые записи вытесняются.
type AlertSink struct {
	mu     sync.Mutex
	alerts []Alert
	limit  int
}

func NewAlertSink(limit int) *AlertSink {
	if limit <= 0 {
		limit = 100
	}
	return &AlertSink{limit: limit}
}

// Record добавляет предупреждение.
func (a *AlertSink) Record(message string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.alerts = append(a.alerts, Alert{Time: time.Now(), Message: message, Fields: fields})
	if len(a.alerts) > a.limit {
		a.alerts = a.alerts[len(a.alerts)-a.limit:]
	}
}

// List возвращает копию накопленных предупреждений, новые последними.
func (a *AlertSink) List() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Alert, len(a.alerts))
	copy(out, a.alerts)
	return out
}
