package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type AccountRepository struct {
	view view
	now  func() time.Time
}

// Create inserts a new account for a live customer. A missing or deleted
// owner is commons.ErrRecordNotFound.
func (r *AccountRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	err := r.view.run(func(st *state) error {
		if owner, ok := st.customers[account.CustomerID]; !ok || owner.IsDeleted() {
			return commons.ErrRecordNotFound
		}
		if _, taken := st.accountNumbers[account.AccountNumber]; taken {
			return commons.ErrDuplicateRecord
		}
		if _, exists := st.accounts[account.ID]; exists {
			return commons.ErrDuplicateRecord
		}
		now := r.now()
		account.CreatedAt = now
		account.UpdatedAt = now
		account.FrozenAt = nil
		account.DeletedAt = nil
		st.accounts[account.ID] = account
		st.accountNumbers[account.AccountNumber] = account.ID
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID, opts ...domain.ReadOption) (domain.Account, error) {
	options := domain.ApplyReadOptions(opts...)

	var account domain.Account
	err := r.view.run(func(st *state) error {
		found, ok := st.accounts[id]
		if !ok || !visible(found.DeletedAt, options) {
			return commons.ErrRecordNotFound
		}
		account = found
		return nil
	})
	return account, err
}

func (r *AccountRepository) GetForCustomer(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID, opts ...domain.ReadOption) (domain.Account, error) {
	account, err := r.GetByID(ctx, accountID, opts...)
	if err != nil {
		return domain.Account{}, err
	}
	if account.CustomerID != customerID {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	return account, nil
}

func (r *AccountRepository) ListByCustomer(_ context.Context, customerID uuid.UUID, opts ...domain.ReadOption) ([]domain.Account, error) {
	options := domain.ApplyReadOptions(opts...)

	accounts := make([]domain.Account, 0)
	err := r.view.run(func(st *state) error {
		for _, account := range st.accounts {
			if account.CustomerID == customerID && visible(account.DeletedAt, options) {
				accounts = append(accounts, account)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortAccounts(accounts)
	return accounts, nil
}

// LockByIDs needs no row locks here: a unit of work already owns the store.
func (r *AccountRepository) LockByIDs(_ context.Context, ids ...uuid.UUID) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(ids))
	err := r.view.run(func(st *state) error {
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if account, ok := st.accounts[id]; ok && account.DeletedAt == nil {
				accounts = append(accounts, account)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
	return accounts, nil
}

func (r *AccountRepository) Freeze(_ context.Context, id uuid.UUID, at time.Time) (domain.Account, error) {
	var frozen domain.Account
	err := r.update(id, func(account *domain.Account) error {
		if account.FrozenAt == nil {
			account.FrozenAt = timeRef(at)
		}
		frozen = *account
		return nil
	})
	return frozen, err
}

func (r *AccountRepository) SeedBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) (domain.Account, error) {
	var seeded domain.Account
	err := r.update(id, func(account *domain.Account) error {
		if account.FrozenAt != nil || !account.Balance.IsZero() {
			return commons.ErrRecordNotFound
		}
		account.Balance = balance
		seeded = *account
		return nil
	})
	return seeded, err
}

func (r *AccountRepository) Debit(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.update(id, func(account *domain.Account) error {
		if account.FrozenAt != nil {
			return domain.ErrAccountFrozen
		}
		if account.Balance.LessThan(amount) {
			return commons.ErrInsufficientBalance
		}
		account.Balance = account.Balance.Sub(amount)
		return nil
	})
}

func (r *AccountRepository) Credit(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.update(id, func(account *domain.Account) error {
		if account.FrozenAt != nil {
			return domain.ErrAccountFrozen
		}
		account.Balance = account.Balance.Add(amount)
		return nil
	})
}

func (r *AccountRepository) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(account *domain.Account) error {
		if account.FrozenAt != nil {
			return domain.ErrAccountFrozen
		}
		if !account.Balance.IsZero() {
			return domain.ErrInvalidBalance
		}
		account.DeletedAt = timeRef(at)
		return nil
	})
}

// update applies fn to a live account and stores the result only if fn
// succeeds.
func (r *AccountRepository) update(id uuid.UUID, fn func(account *domain.Account) error) error {
	return r.view.run(func(st *state) error {
		account, ok := st.accounts[id]
		if !ok || account.DeletedAt != nil {
			return commons.ErrRecordNotFound
		}
		if err := fn(&account); err != nil {
			return err
		}
		account.UpdatedAt = r.now()
		st.accounts[id] = account
		return nil
	})
}

func sortAccounts(accounts []domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID.String() < accounts[j].ID.String()
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}
