package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type TransactionRepository struct {
	view view
	now  func() time.Time
}

func (r *TransactionRepository) Create(_ context.Context, transaction domain.Transaction) (domain.Transaction, error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = r.now()
	}

	err := r.view.run(func(st *state) error {
		debit, ok := st.accounts[transaction.DebitAccountID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		credit, ok := st.accounts[transaction.CreditAccountID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		for _, existing := range st.transactions {
			if existing.ID == transaction.ID {
				return commons.ErrDuplicateRecord
			}
		}
		transaction.DebitAccountNumber = debit.AccountNumber
		transaction.CreditAccountNumber = credit.AccountNumber
		st.transactions = append(st.transactions, transaction)
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return transaction, nil
}

func (r *TransactionRepository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	transactions := make([]domain.Transaction, 0)
	err := r.view.run(func(st *state) error {
		for _, transaction := range st.transactions {
			if transaction.DebitAccountID == accountID || transaction.CreditAccountID == accountID {
				transactions = append(transactions, transaction)
			}
		}
		return nil
	})
	return transactions, err
}

func (r *TransactionRepository) SumDebits(_ context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.view.run(func(st *state) error {
		for _, transaction := range st.transactions {
			if transaction.DebitAccountID != accountID {
				continue
			}
			if !since.IsZero() && transaction.CreatedAt.Before(since) {
				continue
			}
			total = total.Add(transaction.Amount)
		}
		return nil
	})
	return total, err
}
