package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry moving Amount from the debit
// account to the credit account.
type Transaction struct {
	ID                  uuid.UUID
	DebitAccountID      uuid.UUID
	CreditAccountID     uuid.UUID
	DebitAccountNumber  string
	CreditAccountNumber string
	Amount              decimal.Decimal
	Reference           *string
	CreatedAt           time.Time
}
