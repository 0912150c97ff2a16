package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountNumberLength is the fixed length of an external account number.
const AccountNumberLength = 11

type Account struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	AccountNumber string
	Balance       decimal.Decimal
	FrozenAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

func (a Account) IsFrozen() bool {
	return a.FrozenAt != nil
}

func (a Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// MoneyScale is the number of decimal places stored for money.
const MoneyScale = 4

// FitsMoneyScale reports whether amount carries no more than MoneyScale
// decimal places, so storing it loses nothing.
func FitsMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}
