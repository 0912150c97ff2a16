package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID          uuid.UUID
	Name        string
	DateOfBirth time.Time
	DailyLimit  decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time

	// Accounts is filled by reads that project a customer with its accounts.
	Accounts []Account
}

func (c Customer) IsDeleted() bool {
	return c.DeletedAt != nil
}
