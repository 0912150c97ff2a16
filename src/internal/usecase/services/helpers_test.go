package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/customer-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/usecase/service_interfaces"
	"github.com/api-sage/customer-ledger/src/internal/usecase/services"
)

type ledger struct {
	store     *memory.Store
	accounts  *services.AccountService
	transfers *services.TransferService
	customers *services.CustomerService
}

func newLedger(settings services.TransferSettings) ledger {
	store := memory.NewStore()
	repos := store.Repositories()
	accounts := services.NewAccountService(repos.Accounts, nil)

	return ledger{
		store:     store,
		accounts:  accounts,
		transfers: services.NewTransferService(store, repos, settings),
		customers: services.NewCustomerService(store, repos, accounts, decimal.NewFromInt(1000)),
	}
}

func defaultLedger() ledger {
	return newLedger(services.TransferSettings{DailyLimitWindow: 24 * time.Hour, CreditBeneficiary: true})
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func dob() *time.Time {
	t := time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)
	return &t
}

// createCustomer provisions a customer whose first account holds balance.
func (l ledger) createCustomer(t *testing.T, dailyLimit string, balance string) (domain.Customer, domain.Account) {
	t.Helper()
	customer, err := l.customers.Create(context.Background(), service_interfaces.CreateCustomerRequest{
		Name:           "Ada Lovelace",
		DateOfBirth:    dob(),
		DailyLimit:     decPtr(dailyLimit),
		InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	require.Len(t, customer.Accounts, 1)
	return customer, customer.Accounts[0]
}

// openFundedAccount opens an extra account for customerID and funds it.
func (l ledger) openFundedAccount(t *testing.T, customerID uuid.UUID, balance string) domain.Account {
	t.Helper()
	ctx := context.Background()
	account, err := l.accounts.Create(ctx, customerID)
	require.NoError(t, err)
	if dec(balance).IsZero() {
		return account
	}
	account, err = l.store.Repositories().Accounts.SeedBalance(ctx, account.ID, dec(balance))
	require.NoError(t, err)
	return account
}

// storedCustomer inserts a customer straight through repos.
func storedCustomer(t *testing.T, repos domain.Repositories) domain.Customer {
	t.Helper()
	customer, err := repos.Customers.Create(context.Background(), domain.Customer{
		Name:        "Grace Hopper",
		DateOfBirth: *dob(),
		DailyLimit:  dec("1000"),
	})
	require.NoError(t, err)
	return customer
}

func (l ledger) balanceOf(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	account, err := l.store.Repositories().Accounts.GetByID(context.Background(), accountID, domain.IncludeDeleted())
	require.NoError(t, err)
	return account.Balance
}

// sequenceGenerator replays candidates in order and counts calls.
type sequenceGenerator struct {
	candidates []string
	calls      int
}

func (g *sequenceGenerator) next() (string, error) {
	candidate := g.candidates[g.calls%len(g.candidates)]
	g.calls++
	return candidate, nil
}

type accountRepoStub struct {
	domain.AccountRepository
	createFn func(ctx context.Context, account domain.Account) (domain.Account, error)
}

func (s accountRepoStub) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	return s.createFn(ctx, account)
}

type accountOpenerStub struct {
	openFn func(ctx context.Context, accounts domain.AccountRepository, customerID uuid.UUID) (domain.Account, error)
}

func (s accountOpenerStub) OpenAccount(ctx context.Context, accounts domain.AccountRepository, customerID uuid.UUID) (domain.Account, error) {
	return s.openFn(ctx, accounts, customerID)
}
