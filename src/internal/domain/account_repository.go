package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID, opts ...ReadOption) (Account, error)
	GetForCustomer(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID, opts ...ReadOption) (Account, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, opts ...ReadOption) ([]Account, error)
	// LockByIDs returns the non-deleted accounts among ids and holds them
	// exclusively until the enclosing unit of work ends.
	LockByIDs(ctx context.Context, ids ...uuid.UUID) ([]Account, error)
	Freeze(ctx context.Context, id uuid.UUID, at time.Time) (Account, error)
	// SeedBalance sets the balance of a fresh zero-balance account.
	SeedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (Account, error)
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}
