package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction Transaction) (Transaction, error)
	// ListByAccount returns every transaction where accountID is either side.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)
	// SumDebits totals the amounts debited from accountID at or after since.
	// A zero since covers the whole history.
	SumDebits(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error)
}
