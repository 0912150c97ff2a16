package service_interfaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type AccountService interface {
	Create(ctx context.Context, customerID uuid.UUID) (domain.Account, error)
	Get(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) (domain.Account, error)
	List(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error)
	Freeze(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) (domain.Account, error)
	Delete(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) error
}

// AccountOpener opens an account through the repository it is handed, so the
// insert joins whatever unit of work that repository belongs to.
type AccountOpener interface {
	OpenAccount(ctx context.Context, accounts domain.AccountRepository, customerID uuid.UUID) (domain.Account, error)
}
