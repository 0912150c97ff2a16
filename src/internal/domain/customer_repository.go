package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer Customer) (Customer, error)
	GetByID(ctx context.Context, id uuid.UUID, opts ...ReadOption) (Customer, error)
	List(ctx context.Context, opts ...ReadOption) ([]Customer, error)
	Update(ctx context.Context, customer Customer) (Customer, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}
