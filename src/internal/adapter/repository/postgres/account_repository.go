package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/logger"
)

const accountColumns = `id, customer_id, account_number, balance, frozen_at, created_at, updated_at, deleted_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account for a live customer. A clash on
// account_number is reported as commons.ErrDuplicateRecord without aborting an
// enclosing transaction. A missing or deleted owner is commons.ErrRecordNotFound.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	logger.Info("account repository create", logger.Fields{
		"customerId":    account.CustomerID,
		"accountNumber": account.AccountNumber,
	})

	const query = `
INSERT INTO accounts (id, customer_id, account_number, balance)
SELECT $1::uuid, c.id, $3::varchar, $4::numeric
FROM customers c
WHERE c.id = $2 AND c.deleted_at IS NULL
ON CONFLICT (account_number) DO NOTHING
RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.CustomerID,
		account.AccountNumber,
		account.Balance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return domain.Account{}, r.explainSkippedInsert(ctx, account)
	case isUniqueViolation(err):
		logger.Warn("account repository duplicate account", logger.Fields{
			"accountId":     account.ID,
			"accountNumber": account.AccountNumber,
		})
		return domain.Account{}, commons.ErrDuplicateRecord
	case isForeignKeyViolation(err):
		return domain.Account{}, commons.ErrRecordNotFound
	default:
		logger.Error("account repository create failed", err, logger.Fields{
			"customerId":    account.CustomerID,
			"accountNumber": account.AccountNumber,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId":     account.ID,
		"accountNumber": account.AccountNumber,
	})
	return account, nil
}

// explainSkippedInsert tells a missing owner apart from a number collision
// once the insert returned no row.
func (r *AccountRepository) explainSkippedInsert(ctx context.Context, account domain.Account) error {
	const query = `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`

	var ownerExists bool
	if err := r.db.QueryRowContext(ctx, query, account.CustomerID).Scan(&ownerExists); err != nil {
		return fmt.Errorf("create account: check owner: %w", err)
	}
	if !ownerExists {
		logger.Warn("account repository owner not found", logger.Fields{
			"customerId": account.CustomerID,
		})
		return commons.ErrRecordNotFound
	}

	logger.Warn("account repository duplicate account number", logger.Fields{
		"accountNumber": account.AccountNumber,
	})
	return commons.ErrDuplicateRecord
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID, opts ...domain.ReadOption) (domain.Account, error) {
	options := domain.ApplyReadOptions(opts...)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if !options.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("account repository record not found", logger.Fields{
				"accountId": id,
			})
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetForCustomer(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID, opts ...domain.ReadOption) (domain.Account, error) {
	options := domain.ApplyReadOptions(opts...)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND customer_id = $2`
	if !options.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountID, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("account repository record not found", logger.Fields{
				"accountId":  accountID,
				"customerId": customerID,
			})
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository get for customer failed", err, logger.Fields{
			"accountId":  accountID,
			"customerId": customerID,
		})
		return domain.Account{}, fmt.Errorf("get account for customer: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, opts ...domain.ReadOption) ([]domain.Account, error) {
	options := domain.ApplyReadOptions(opts...)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1`
	if !options.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		logger.Error("account repository list by customer failed", err, logger.Fields{
			"customerId": customerID,
		})
		return nil, fmt.Errorf("list accounts by customer: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *AccountRepository) LockByIDs(ctx context.Context, ids ...uuid.UUID) ([]domain.Account, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	// A fixed lock order keeps two opposing transfers from deadlocking.
	query := `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = ANY($1::uuid[])
  AND deleted_at IS NULL
ORDER BY id
FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		logger.Error("account repository lock failed", err, logger.Fields{
			"accountIds": keys,
		})
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *AccountRepository) Freeze(ctx context.Context, id uuid.UUID, at time.Time) (domain.Account, error) {
	logger.Info("account repository freeze", logger.Fields{
		"accountId": id,
	})

	const query = `
UPDATE accounts
SET frozen_at = COALESCE(frozen_at, $2),
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository freeze failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("freeze account: %w", err)
	}

	logger.Info("account repository freeze success", logger.Fields{
		"accountId": id,
	})
	return account, nil
}

func (r *AccountRepository) SeedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (domain.Account, error) {
	logger.Info("account repository seed balance", logger.Fields{
		"accountId": id,
		"balance":   balance,
	})

	const query = `
UPDATE accounts
SET balance = $2,
    updated_at = NOW()
WHERE id = $1
  AND balance = 0
  AND frozen_at IS NULL
  AND deleted_at IS NULL
RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id, balance))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository seed balance failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("seed account balance: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	logger.Info("account repository debit", logger.Fields{
		"accountId": id,
		"amount":    amount,
	})

	const query = `
UPDATE accounts
SET balance = balance - $2,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
  AND frozen_at IS NULL
  AND balance >= $2`

	result, err := r.db.ExecContext(ctx, query, id, amount)
	if err != nil {
		logger.Error("account repository debit failed", err, logger.Fields{
			"accountId": id,
			"amount":    amount,
		})
		return fmt.Errorf("debit account: %w", err)
	}

	if err := requireRows(result); err != nil {
		if !errors.Is(err, commons.ErrRecordNotFound) {
			return err
		}
		return r.explainRejectedUpdate(ctx, id, commons.ErrInsufficientBalance)
	}

	logger.Info("account repository debit success", logger.Fields{
		"accountId": id,
		"amount":    amount,
	})
	return nil
}

func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	logger.Info("account repository credit", logger.Fields{
		"accountId": id,
		"amount":    amount,
	})

	const query = `
UPDATE accounts
SET balance = balance + $2,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
  AND frozen_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, amount)
	if err != nil {
		logger.Error("account repository credit failed", err, logger.Fields{
			"accountId": id,
			"amount":    amount,
		})
		return fmt.Errorf("credit account: %w", err)
	}

	if err := requireRows(result); err != nil {
		if !errors.Is(err, commons.ErrRecordNotFound) {
			return err
		}
		return r.explainRejectedUpdate(ctx, id, commons.ErrRecordNotFound)
	}

	logger.Info("account repository credit success", logger.Fields{
		"accountId": id,
		"amount":    amount,
	})
	return nil
}

func (r *AccountRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	logger.Info("account repository soft delete", logger.Fields{
		"accountId": id,
	})

	const query = `
UPDATE accounts
SET deleted_at = $2,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
  AND frozen_at IS NULL
  AND balance = 0`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		logger.Error("account repository soft delete failed", err, logger.Fields{
			"accountId": id,
		})
		return fmt.Errorf("soft delete account: %w", err)
	}

	if err := requireRows(result); err != nil {
		if !errors.Is(err, commons.ErrRecordNotFound) {
			return err
		}
		return r.explainRejectedUpdate(ctx, id, domain.ErrInvalidBalance)
	}

	logger.Info("account repository soft delete success", logger.Fields{
		"accountId": id,
	})
	return nil
}

// explainRejectedUpdate reports why a guarded update matched no row: the
// account is gone, frozen, or failed the remaining guard (fallback).
func (r *AccountRepository) explainRejectedUpdate(ctx context.Context, id uuid.UUID, fallback error) error {
	account, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsFrozen() {
		return domain.ErrAccountFrozen
	}
	return fallback
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var frozenAt sql.NullTime
	var deletedAt sql.NullTime
	if err := row.Scan(
		&account.ID,
		&account.CustomerID,
		&account.AccountNumber,
		&account.Balance,
		&frozenAt,
		&account.CreatedAt,
		&account.UpdatedAt,
		&deletedAt,
	); err != nil {
		return domain.Account{}, err
	}
	account.FrozenAt = timePtr(frozenAt)
	account.DeletedAt = timePtr(deletedAt)
	return account, nil
}

func collectAccounts(rows *sql.Rows) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}
