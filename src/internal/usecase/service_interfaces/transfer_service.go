package service_interfaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type CreateTransferRequest struct {
	CustomerID      uuid.UUID
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
	Amount          decimal.Decimal
	Reference       *string
}

type TransferService interface {
	Create(ctx context.Context, req CreateTransferRequest) (domain.Transaction, error)
	List(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) ([]domain.Transaction, error)
}
