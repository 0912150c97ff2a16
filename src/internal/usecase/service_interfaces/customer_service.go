package service_interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type CreateCustomerRequest struct {
	Name        string
	DateOfBirth *time.Time
	// DailyLimit falls back to the configured default when nil.
	DailyLimit     *decimal.Decimal
	InitialBalance decimal.Decimal
}

// UpdateCustomerRequest changes only the fields that are set.
type UpdateCustomerRequest struct {
	Name        *string
	DateOfBirth *time.Time
	DailyLimit  *decimal.Decimal
}

type CustomerService interface {
	Create(ctx context.Context, req CreateCustomerRequest) (domain.Customer, error)
	Get(ctx context.Context, customerID uuid.UUID) (domain.Customer, error)
	Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (domain.Customer, error)
	Delete(ctx context.Context, customerID uuid.UUID) error
	List(ctx context.Context) ([]domain.Customer, error)
	Exists(ctx context.Context, customerID uuid.UUID) (bool, error)
}
