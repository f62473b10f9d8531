package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/samilink/backend/internal/models"
)

// SettlementRepository владеет транзакцией оплаты счёта: переход
// unpaid → paid и каскад продвижения заявки выполняются как единое целое.
type SettlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// SettlementResult описывает исход оплаты счёта.
type SettlementResult struct {
	Invoice   *models.Invoice
	Agreement *models.Agreement
	Request   *models.Request

	// Transitioned — переход unpaid → paid произошёл именно этим вызовом.
	// Повторная оплата уже оплаченного счёта возвращает false и каскад
	// не запускает.
	Transitioned bool
	// Completed — заявка завершена этим вызовом (автозавершение).
	Completed bool
}

// MarkInvoicePaid помечает счёт оплаченным и в той же транзакции продвигает
// заявку: минимум до in_progress, а при включённом автозавершении, когда все
// положительные счета соглашения оплачены и все этапы одобрены клиентом,
// до completed. Заявка под спором каскадом не трогается.
//
// Создание выплаты в эту транзакцию не входит: её сбой не должен откатывать
// оплату (см. PayoutRepository.AutoCreate).
func (r *SettlementRepository) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, method, ref string, paidAt time.Time, autocomplete bool) (*SettlementResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	inv, err := getInvoiceForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}

	res := &SettlementResult{Invoice: inv}

	switch inv.Status {
	case models.InvoiceStatusPaid:
		// Повтор вебхука или двойное подтверждение: состояние уже целевое.
		return res, tx.Commit()
	case models.InvoiceStatusCancelled:
		return nil, ErrInvoiceNotUnpaid
	}

	agreement, err := getAgreementForUpdate(ctx, tx, inv.AgreementID)
	if err != nil {
		return nil, err
	}
	res.Agreement = agreement

	req, err := getRequestForUpdate(ctx, tx, agreement.RequestID)
	if err != nil {
		return nil, err
	}
	res.Request = req

	err = tx.GetContext(ctx, inv, `
		UPDATE invoices
		SET status = $2, paid_at = $3, method = $4, ref_code = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, invoiceID, models.InvoiceStatusPaid, paidAt, method, ref)
	if err != nil {
		return nil, fmt.Errorf("settlement repository: mark paid: %w", err)
	}
	res.Transitioned = true

	if inv.TotalAmount.IsPositive() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (entry_type, direction, amount, invoice_id, note)
			VALUES ($1, $2, $3, $4, 'Оплата счёта клиентом')
		`, models.LedgerTypeClientPayment, models.LedgerDirectionIn, inv.TotalAmount, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("settlement repository: ledger entry: %w", err)
		}
	}

	// Продвижение до in_progress. Терминальные статусы не трогаем:
	// повторная оплата не должна «оживлять» отменённую или спорную заявку.
	if !models.IsTerminalRequestStatus(req.Status) && req.Status != models.RequestStatusInProgress {
		err = tx.GetContext(ctx, req, `
			UPDATE requests SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
		`, req.ID, models.RequestStatusInProgress)
		if err != nil {
			return nil, fmt.Errorf("settlement repository: advance in progress: %w", err)
		}
	}

	if autocomplete && !req.IsFrozen && req.Status == models.RequestStatusInProgress {
		done, err := agreementSettled(ctx, tx, agreement.ID)
		if err != nil {
			return nil, err
		}
		if done {
			err = tx.GetContext(ctx, req, `
				UPDATE requests
				SET status = $2, completed_at = COALESCE(completed_at, $3), updated_at = NOW()
				WHERE id = $1
				RETURNING *
			`, req.ID, models.RequestStatusCompleted, paidAt)
			if err != nil {
				return nil, fmt.Errorf("settlement repository: advance completed: %w", err)
			}
			res.Completed = true
		}
	}

	return res, tx.Commit()
}

// TryAutoComplete повторяет проверку автозавершения вне оплаты счёта.
// Нужен, когда последним условием закрывается этап: счета уже оплачены,
// а клиент одобряет этап позже. Возвращает заявку и признак завершения
// этим вызовом.
func (r *SettlementRepository) TryAutoComplete(ctx context.Context, agreementID uuid.UUID, now time.Time) (*models.Request, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	agreement, err := getAgreementForUpdate(ctx, tx, agreementID)
	if err != nil {
		return nil, false, err
	}
	req, err := getRequestForUpdate(ctx, tx, agreement.RequestID)
	if err != nil {
		return nil, false, err
	}

	if req.IsFrozen || req.Status != models.RequestStatusInProgress {
		return req, false, tx.Commit()
	}

	var paid int
	err = tx.GetContext(ctx, &paid, `
		SELECT COUNT(*) FROM invoices WHERE agreement_id = $1 AND status = $2
	`, agreementID, models.InvoiceStatusPaid)
	if err != nil {
		return nil, false, fmt.Errorf("settlement repository: count paid: %w", err)
	}
	if paid == 0 {
		return req, false, tx.Commit()
	}

	done, err := agreementSettled(ctx, tx, agreementID)
	if err != nil {
		return nil, false, err
	}
	if !done {
		return req, false, tx.Commit()
	}

	err = tx.GetContext(ctx, req, `
		UPDATE requests
		SET status = $2, completed_at = COALESCE(completed_at, $3), updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, req.ID, models.RequestStatusCompleted, now)
	if err != nil {
		return nil, false, fmt.Errorf("settlement repository: auto complete: %w", err)
	}
	return req, true, tx.Commit()
}

// agreementSettled проверяет условия автозавершения: все счета соглашения
// с положительным итогом оплачены и все этапы одобрены клиентом.
// Отсутствие этапов считается выполненным условием.
func agreementSettled(ctx context.Context, tx *sqlx.Tx, agreementID uuid.UUID) (bool, error) {
	var unpaid int
	err := tx.GetContext(ctx, &unpaid, `
		SELECT COUNT(*) FROM invoices
		WHERE agreement_id = $1 AND total_amount > 0 AND status = $2
	`, agreementID, models.InvoiceStatusUnpaid)
	if err != nil {
		return false, fmt.Errorf("settlement repository: count unpaid: %w", err)
	}
	if unpaid > 0 {
		return false, nil
	}

	var unapproved int
	err = tx.GetContext(ctx, &unapproved, `
		SELECT COUNT(*) FROM milestones
		WHERE agreement_id = $1 AND is_approved = FALSE
	`, agreementID)
	if err != nil {
		return false, fmt.Errorf("settlement repository: count unapproved: %w", err)
	}
	return unapproved == 0, nil
}

func getAgreementForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Agreement, error) {
	var agreement models.Agreement
	err := tx.GetContext(ctx, &agreement, `SELECT * FROM agreements WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("settlement repository: lock agreement: %w", err)
	}
	return &agreement, nil
}
