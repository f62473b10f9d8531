package models

import "strings"

// Статусы заявок
const (
	RequestStatusNew              = "new"
	RequestStatusOfferSelected    = "offer_selected"
	RequestStatusAgreementPending = "agreement_pending"
	RequestStatusInProgress       = "in_progress"
	RequestStatusCompleted        = "completed"
	RequestStatusDisputed         = "disputed"
	RequestStatusCancelled        = "cancelled"
)

// Статусы предложений
const (
	OfferStatusPending   = "pending"
	OfferStatusSelected  = "selected"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
)

// Статусы счетов
const (
	InvoiceStatusUnpaid    = "unpaid"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// Статусы выплат исполнителям
const (
	PayoutStatusPending   = "pending"
	PayoutStatusPaid      = "paid"
	PayoutStatusCancelled = "cancelled"
)

// Статусы возвратов
const (
	RefundStatusPending   = "pending"
	RefundStatusSent      = "sent"
	RefundStatusCancelled = "cancelled"
)

var ValidRequestStatuses = map[string]struct{}{
	RequestStatusNew:              {},
	RequestStatusOfferSelected:    {},
	RequestStatusAgreementPending: {},
	RequestStatusInProgress:       {},
	RequestStatusCompleted:        {},
	RequestStatusDisputed:         {},
	RequestStatusCancelled:        {},
}

var ValidOfferStatuses = map[string]struct{}{
	OfferStatusPending:   {},
	OfferStatusSelected:  {},
	OfferStatusRejected:  {},
	OfferStatusWithdrawn: {},
}

var ValidInvoiceStatuses = map[string]struct{}{
	InvoiceStatusUnpaid:    {},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {},
}

// Исторические написания статусов из старых выгрузок и внешних систем.
// Нормализация выполняется один раз на границе (вебхуки, импорт),
// внутренний код видит только канонические значения.
var legacyRequestStatuses = map[string]string{
	"dispute":     RequestStatusDisputed,
	"in dispute":  RequestStatusDisputed,
	"canceled":    RequestStatusCancelled,
	"cancel":      RequestStatusCancelled,
	"done":        RequestStatusCompleted,
	"finished":    RequestStatusCompleted,
	"complete":    RequestStatusCompleted,
	"inprogress":  RequestStatusInProgress,
	"in-progress": RequestStatusInProgress,
	"open":        RequestStatusNew,
	"selected":    RequestStatusOfferSelected,
}

var legacyInvoiceStatuses = map[string]string{
	"payed":    InvoiceStatusPaid,
	"settled":  InvoiceStatusPaid,
	"canceled": InvoiceStatusCancelled,
	"void":     InvoiceStatusCancelled,
	"open":     InvoiceStatusUnpaid,
	"issued":   InvoiceStatusUnpaid,
	"not_paid": InvoiceStatusUnpaid,
}

var legacyOfferStatuses = map[string]string{
	"select":   OfferStatusSelected,
	"accepted": OfferStatusSelected,
	"declined": OfferStatusRejected,
	"revoked":  OfferStatusWithdrawn,
}

func canon(raw string, valid map[string]struct{}, legacy map[string]string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := valid[s]; ok {
		return s, true
	}
	if v, ok := legacy[s]; ok {
		return v, true
	}
	return s, false
}

// CanonicalRequestStatus приводит статус заявки к каноническому значению.
func CanonicalRequestStatus(raw string) (string, bool) {
	return canon(raw, ValidRequestStatuses, legacyRequestStatuses)
}

// CanonicalInvoiceStatus приводит статус счёта к каноническому значению.
func CanonicalInvoiceStatus(raw string) (string, bool) {
	return canon(raw, ValidInvoiceStatuses, legacyInvoiceStatuses)
}

// CanonicalOfferStatus приводит статус предложения к каноническому значению.
func CanonicalOfferStatus(raw string) (string, bool) {
	return canon(raw, ValidOfferStatuses, legacyOfferStatuses)
}

// IsTerminalRequestStatus: из этих состояний автоматическое продвижение запрещено.
func IsTerminalRequestStatus(status string) bool {
	switch status {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusDisputed:
		return true
	}
	return false
}
