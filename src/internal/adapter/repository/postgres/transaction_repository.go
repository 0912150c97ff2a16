package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/logger"
)

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction domain.Transaction) (domain.Transaction, error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now().UTC()
	}

	logger.Info("transaction repository create", logger.Fields{
		"transactionId":   transaction.ID,
		"debitAccountId":  transaction.DebitAccountID,
		"creditAccountId": transaction.CreditAccountID,
		"amount":          transaction.Amount,
	})

	const query = `
INSERT INTO transactions (id, debit_account_id, credit_account_id, amount, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		transaction.ID,
		transaction.DebitAccountID,
		transaction.CreditAccountID,
		transaction.Amount,
		transaction.Reference,
		transaction.CreatedAt,
	); err != nil {
		logger.Error("transaction repository create failed", err, logger.Fields{
			"transactionId": transaction.ID,
		})
		if isUniqueViolation(err) {
			return domain.Transaction{}, commons.ErrDuplicateRecord
		}
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	logger.Info("transaction repository create success", logger.Fields{
		"transactionId": transaction.ID,
	})
	return transaction, nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	const query = `
SELECT t.id,
       t.debit_account_id,
       t.credit_account_id,
       d.account_number,
       c.account_number,
       t.amount,
       t.reference,
       t.created_at
FROM transactions t
JOIN accounts d ON d.id = t.debit_account_id
JOIN accounts c ON c.id = t.credit_account_id
WHERE t.debit_account_id = $1
   OR t.credit_account_id = $1
ORDER BY t.created_at, t.id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		logger.Error("transaction repository list by account failed", err, logger.Fields{
			"accountId": accountID,
		})
		return nil, fmt.Errorf("list transactions by account: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var transaction domain.Transaction
		var reference sql.NullString
		if err := rows.Scan(
			&transaction.ID,
			&transaction.DebitAccountID,
			&transaction.CreditAccountID,
			&transaction.DebitAccountNumber,
			&transaction.CreditAccountNumber,
			&transaction.Amount,
			&reference,
			&transaction.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if reference.Valid {
			value := reference.String
			transaction.Reference = &value
		}
		transaction.CreatedAt = transaction.CreatedAt.UTC()
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return transactions, nil
}

func (r *TransactionRepository) SumDebits(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	const query = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE debit_account_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)`

	var from sql.NullTime
	if !since.IsZero() {
		from = sql.NullTime{Time: since, Valid: true}
	}

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, accountID, from).Scan(&total); err != nil {
		logger.Error("transaction repository sum debits failed", err, logger.Fields{
			"accountId": accountID,
		})
		return decimal.Zero, fmt.Errorf("sum debits: %w", err)
	}

	return total, nil
}
