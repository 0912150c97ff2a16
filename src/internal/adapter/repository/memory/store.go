package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

// Store keeps the ledger in process memory. A unit of work holds the store
// lock for its whole duration and edits a private copy of the state, which
// replaces the live state only when the work succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type state struct {
	customers      map[uuid.UUID]domain.Customer
	accounts       map[uuid.UUID]domain.Account
	accountNumbers map[string]uuid.UUID
	transactions   []domain.Transaction
}

func NewStore() *Store {
	return &Store{
		state: &state{
			customers:      make(map[uuid.UUID]domain.Customer),
			accounts:       make(map[uuid.UUID]domain.Account),
			accountNumbers: make(map[string]uuid.UUID),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Repositories returns repositories that apply each call immediately.
func (s *Store) Repositories() domain.Repositories {
	return repositoriesFor(view{store: s}, s.now)
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, repositoriesFor(view{state: work}, s.now)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = work
	return nil
}

func repositoriesFor(v view, now func() time.Time) domain.Repositories {
	return domain.Repositories{
		Customers:    &CustomerRepository{view: v, now: now},
		Accounts:     &AccountRepository{view: v, now: now},
		Transactions: &TransactionRepository{view: v, now: now},
	}
}

// view resolves the state a repository works on: the live state under the
// store lock, or the private copy of a running unit of work.
type view struct {
	store *Store
	state *state
}

func (v view) run(fn func(st *state) error) error {
	if v.store != nil {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
		return fn(v.store.state)
	}
	return fn(v.state)
}

func (s *state) clone() *state {
	out := &state{
		customers:      make(map[uuid.UUID]domain.Customer, len(s.customers)),
		accounts:       make(map[uuid.UUID]domain.Account, len(s.accounts)),
		accountNumbers: make(map[string]uuid.UUID, len(s.accountNumbers)),
		transactions:   make([]domain.Transaction, len(s.transactions)),
	}
	for id, customer := range s.customers {
		out.customers[id] = customer
	}
	for id, account := range s.accounts {
		out.accounts[id] = account
	}
	for number, id := range s.accountNumbers {
		out.accountNumbers[number] = id
	}
	copy(out.transactions, s.transactions)
	return out
}

func visible(deletedAt *time.Time, opts domain.ReadOptions) bool {
	return opts.IncludeDeleted || deletedAt == nil
}

func timeRef(t time.Time) *time.Time {
	return &t
}
