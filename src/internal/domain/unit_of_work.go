package domain

import "context"

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Customers    CustomerRepository
	Accounts     AccountRepository
	Transactions TransactionRepository
}

// UnitOfWork runs fn inside a single store transaction. The transaction
// commits when fn returns nil and rolls back when it returns an error or panics.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
