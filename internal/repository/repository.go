package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Ошибки состояния, возвращаемые репозиториями. Сервисный слой переводит их
// в типизированные ошибки apperror с пользовательскими сообщениями.
var (
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — параллельное изменение или нарушение уникального
	// индекса; операцию безопасно повторить целиком.
	ErrConflict = errors.New("конфликт параллельного изменения")

	ErrRequestNotNew        = errors.New("заявка не в статусе new")
	ErrRequestFrozen        = errors.New("заявка заморожена спором")
	ErrRequestAssigned      = errors.New("по заявке уже назначен исполнитель")
	ErrRequestTerminal      = errors.New("заявка в терминальном статусе")
	ErrOfferNotPending      = errors.New("предложение не в статусе pending")
	ErrInvoiceNotUnpaid     = errors.New("счёт не в статусе unpaid")
	ErrInvoiceNotPaid       = errors.New("счёт не оплачен")
	ErrPayoutNotPending     = errors.New("выплата не в статусе pending")
	ErrDisputeClosed        = errors.New("спор уже закрыт")
	ErrRefundExceedsInvoice = errors.New("сумма возвратов превышает итог счёта")
)

// isUniqueViolation распознаёт нарушение уникального индекса PostgreSQL.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
