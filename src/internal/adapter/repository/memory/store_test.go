package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
)

func seedCustomerWithAccount(t *testing.T, store *Store, number string, balance int64) (domain.Customer, domain.Account) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	customer, err := repos.Customers.Create(ctx, domain.Customer{
		Name:        "Ada",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		DailyLimit:  decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	account, err := repos.Accounts.Create(ctx, domain.Account{
		CustomerID:    customer.ID,
		AccountNumber: number,
		Balance:       decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
	return customer, account
}

func TestDoCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, account := seedCustomerWithAccount(t, store, "00000000001", 100)

	err := store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Accounts.Debit(ctx, account.ID, decimal.NewFromInt(40))
	})
	require.NoError(t, err)

	got, err := store.Repositories().Accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(got.Balance))
}

func TestDoDiscardsWorkOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	customer, account := seedCustomerWithAccount(t, store, "00000000001", 100)
	boom := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		require.NoError(t, repos.Accounts.Debit(ctx, account.ID, decimal.NewFromInt(40)))
		_, err := repos.Accounts.Create(ctx, domain.Account{CustomerID: customer.ID, AccountNumber: "00000000002"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	repos := store.Repositories()
	got, err := repos.Accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))

	accounts, err := repos.Accounts.ListByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestDoDiscardsWorkOnPanic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, account := seedCustomerWithAccount(t, store, "00000000001", 100)

	assert.Panics(t, func() {
		_ = store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
			_ = repos.Accounts.Debit(ctx, account.ID, decimal.NewFromInt(40))
			panic("unexpected")
		})
	})

	got, err := store.Repositories().Accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))
}

func TestAccountNumberIsUniqueIncludingDeleted(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	customer, account := seedCustomerWithAccount(t, store, "00000000001", 0)
	repos := store.Repositories()

	require.NoError(t, repos.Accounts.SoftDelete(ctx, account.ID, time.Now()))

	_, err := repos.Accounts.Create(ctx, domain.Account{CustomerID: customer.ID, AccountNumber: "00000000001"})
	assert.ErrorIs(t, err, commons.ErrDuplicateRecord)
}

func TestReadsHideSoftDeletedUnlessAsked(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	customer, account := seedCustomerWithAccount(t, store, "00000000001", 0)
	repos := store.Repositories()

	require.NoError(t, repos.Accounts.SoftDelete(ctx, account.ID, time.Now()))

	_, err := repos.Accounts.GetByID(ctx, account.ID)
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)

	got, err := repos.Accounts.GetByID(ctx, account.ID, domain.IncludeDeleted())
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	listed, err := repos.Accounts.ListByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	listed, err = repos.Accounts.ListByCustomer(ctx, customer.ID, domain.IncludeDeleted())
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestGuardedAccountWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, account := seedCustomerWithAccount(t, store, "00000000001", 10)
	repos := store.Repositories()

	assert.ErrorIs(t, repos.Accounts.Debit(ctx, account.ID, decimal.NewFromInt(11)), commons.ErrInsufficientBalance)
	assert.ErrorIs(t, repos.Accounts.SoftDelete(ctx, account.ID, time.Now()), domain.ErrInvalidBalance)
	assert.ErrorIs(t, repos.Accounts.Debit(ctx, uuid.New(), decimal.NewFromInt(1)), commons.ErrRecordNotFound)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frozen, err := repos.Accounts.Freeze(ctx, account.ID, at)
	require.NoError(t, err)
	require.NotNil(t, frozen.FrozenAt)

	again, err := repos.Accounts.Freeze(ctx, account.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, at, *again.FrozenAt)

	assert.ErrorIs(t, repos.Accounts.Debit(ctx, account.ID, decimal.NewFromInt(1)), domain.ErrAccountFrozen)
	assert.ErrorIs(t, repos.Accounts.Credit(ctx, account.ID, decimal.NewFromInt(1)), domain.ErrAccountFrozen)
	assert.ErrorIs(t, repos.Accounts.SoftDelete(ctx, account.ID, time.Now()), domain.ErrAccountFrozen)
}

func TestSumDebitsHonoursWindow(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, debit := seedCustomerWithAccount(t, store, "00000000001", 100)
	_, credit := seedCustomerWithAccount(t, store, "00000000002", 0)
	repos := store.Repositories()

	now := time.Now().UTC()
	for _, tx := range []domain.Transaction{
		{DebitAccountID: debit.ID, CreditAccountID: credit.ID, Amount: decimal.NewFromInt(30), CreatedAt: now.Add(-48 * time.Hour)},
		{DebitAccountID: debit.ID, CreditAccountID: credit.ID, Amount: decimal.NewFromInt(20), CreatedAt: now.Add(-time.Hour)},
		{DebitAccountID: credit.ID, CreditAccountID: debit.ID, Amount: decimal.NewFromInt(5), CreatedAt: now},
	} {
		_, err := repos.Transactions.Create(ctx, tx)
		require.NoError(t, err)
	}

	recent, err := repos.Transactions.SumDebits(ctx, debit.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "20", recent.String())

	all, err := repos.Transactions.SumDebits(ctx, debit.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "50", all.String())

	listed, err := repos.Transactions.ListByAccount(ctx, debit.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "00000000001", listed[0].DebitAccountNumber)
	assert.Equal(t, "00000000002", listed[0].CreditAccountNumber)
}

func TestAccountCreateRequiresLiveOwner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	customer, _ := seedCustomerWithAccount(t, store, "00000000001", 0)
	repos := store.Repositories()

	_, err := repos.Accounts.Create(ctx, domain.Account{CustomerID: uuid.New(), AccountNumber: "00000000002"})
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)

	require.NoError(t, repos.Customers.SoftDelete(ctx, customer.ID, time.Now()))
	_, err = repos.Accounts.Create(ctx, domain.Account{CustomerID: customer.ID, AccountNumber: "00000000002"})
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)

	_, err = repos.Accounts.Create(ctx, domain.Account{CustomerID: customer.ID, AccountNumber: "00000000001"})
	assert.ErrorIs(t, err, commons.ErrRecordNotFound, "the owner check runs before the number check")
}
