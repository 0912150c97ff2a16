package services_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/usecase/service_interfaces"
	"github.com/api-sage/customer-ledger/src/internal/usecase/services"
)

func transfer(customerID, debitID, creditID uuid.UUID, amount string) service_interfaces.CreateTransferRequest {
	return service_interfaces.CreateTransferRequest{
		CustomerID:      customerID,
		DebitAccountID:  debitID,
		CreditAccountID: creditID,
		Amount:          dec(amount),
	}
}

func codes(t *testing.T, err error) []domain.ErrorCode {
	t.Helper()
	require.Error(t, err)
	var set domain.ValidationErrors
	require.True(t, errors.As(err, &set), "expected validation errors, got %v", err)
	return []domain.ErrorCode(set)
}

func transactionCount(t *testing.T, l ledger, accountID uuid.UUID) int {
	t.Helper()
	listed, err := l.store.Repositories().Transactions.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	return len(listed)
}

func TestTransferServiceCreateMovesFunds(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000", "500")
	_, credit := l.createCustomer(t, "1000", "10")
	reference := "rent"

	req := transfer(payer.ID, debit.ID, credit.ID, "120.50")
	req.Reference = &reference

	tx, err := l.transfers.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, debit.AccountNumber, tx.DebitAccountNumber)
	assert.Equal(t, credit.AccountNumber, tx.CreditAccountNumber)
	assert.Equal(t, "120.5", tx.Amount.String())
	require.NotNil(t, tx.Reference)
	assert.Equal(t, "rent", *tx.Reference)

	assert.Equal(t, "379.5", l.balanceOf(t, debit.ID).String())
	assert.Equal(t, "130.5", l.balanceOf(t, credit.ID).String())

	listed, err := l.transfers.List(context.Background(), payer.ID, debit.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, tx.ID, listed[0].ID)
}

func TestTransferServiceSingleEntryLeavesCreditUntouched(t *testing.T) {
	l := newLedger(services.TransferSettings{DailyLimitWindow: 24 * time.Hour})
	payer, debit := l.createCustomer(t, "1000", "500")
	_, credit := l.createCustomer(t, "1000", "10")

	_, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, credit.ID, "100"))
	require.NoError(t, err)

	assert.Equal(t, "400", l.balanceOf(t, debit.ID).String())
	assert.Equal(t, "10", l.balanceOf(t, credit.ID).String())
}

func TestTransferServiceDailyLimit(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "200", "1000")
	_, credit := l.createCustomer(t, "1000", "0")
	ctx := context.Background()

	_, err := l.transfers.Create(ctx, transfer(payer.ID, debit.ID, credit.ID, "150"))
	require.NoError(t, err)

	_, err = l.transfers.Create(ctx, transfer(payer.ID, debit.ID, credit.ID, "100"))
	assert.Equal(t, []domain.ErrorCode{domain.ErrDailyLimitReached}, codes(t, err))

	assert.Equal(t, "850", l.balanceOf(t, debit.ID).String())
	assert.Equal(t, 1, transactionCount(t, l, debit.ID))

	_, err = l.transfers.Create(ctx, transfer(payer.ID, debit.ID, credit.ID, "50"))
	require.NoError(t, err, "spending exactly up to the limit is allowed")
}

func TestTransferServiceDailyLimitWindow(t *testing.T) {
	cases := []struct {
		name    string
		window  time.Duration
		allowed bool
	}{
		{name: "rolling day ignores older debits", window: 24 * time.Hour, allowed: true},
		{name: "zero window counts all history", window: 0, allowed: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLedger(services.TransferSettings{DailyLimitWindow: tc.window, CreditBeneficiary: true})
			payer, debit := l.createCustomer(t, "200", "1000")
			_, credit := l.createCustomer(t, "1000", "0")
			ctx := context.Background()

			_, err := l.store.Repositories().Transactions.Create(ctx, domain.Transaction{
				DebitAccountID:  debit.ID,
				CreditAccountID: credit.ID,
				Amount:          dec("150"),
				CreatedAt:       time.Now().UTC().Add(-48 * time.Hour),
			})
			require.NoError(t, err)

			_, err = l.transfers.Create(ctx, transfer(payer.ID, debit.ID, credit.ID, "100"))
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrDailyLimitReached)
		})
	}
}

func TestTransferServiceRejectsNonPositiveAmount(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000", "100")
	_, credit := l.createCustomer(t, "1000", "0")

	for _, amount := range []string{"0", "-10"} {
		_, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, credit.ID, amount))
		assert.Equal(t, []domain.ErrorCode{domain.ErrInvalidAmount}, codes(t, err), "amount %s", amount)
	}

	assert.Equal(t, "100", l.balanceOf(t, debit.ID).String())
	assert.Zero(t, transactionCount(t, l, debit.ID))
}

func TestTransferServiceRejectsAmountsFinerThanMoneyScale(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000", "5")
	_, credit := l.createCustomer(t, "1000", "0")

	for _, amount := range []string{"0.00001", "4.99996", "1.12345"} {
		_, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, credit.ID, amount))
		assert.Equal(t, []domain.ErrorCode{domain.ErrInvalidAmount}, codes(t, err), "amount %s", amount)
	}
	assert.Equal(t, "5", l.balanceOf(t, debit.ID).String())
	assert.Zero(t, transactionCount(t, l, debit.ID))

	tx, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, credit.ID, "1.50000"))
	require.NoError(t, err, "trailing zeros fit the scale")
	assert.Equal(t, "1.5", tx.Amount.String())
	assert.Equal(t, "3.5", l.balanceOf(t, debit.ID).String())
}

func TestTransferServiceRejectsSameAccount(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000", "100")

	_, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, debit.ID, "10"))
	assert.Equal(t, []domain.ErrorCode{domain.ErrInvalidAccounts}, codes(t, err))

	_, err = l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, debit.ID, "0"))
	assert.Equal(t, []domain.ErrorCode{domain.ErrInvalidAmount, domain.ErrInvalidAccounts}, codes(t, err))
}

func TestTransferServiceCollectsAccountErrors(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000", "100")
	other, foreign := l.createCustomer(t, "1000", "100")
	ctx := context.Background()

	t.Run("missing credit account", func(t *testing.T) {
		_, err := l.transfers.Create(ctx, transfer(payer.ID, debit.ID, uuid.New(), "10"))
		got := codes(t, err)
		assert.ElementsMatch(t, []domain.ErrorCode{domain.ErrInvalidAccounts, domain.ErrCreditAccountNotFound}, got)
	})

	t.Run("missing both accounts", func(t *testing.T) {
		_, err := l.transfers.Create(ctx, transfer(payer.ID, uuid.New(), uuid.New(), "10"))
		got := codes(t, err)
		assert.ElementsMatch(t, []domain.ErrorCode{
			domain.ErrInvalidAccounts,
			domain.ErrDebitAccountNotFound,
			domain.ErrCreditAccountNotFound,
			domain.ErrInsufficientFunds,
		}, got)
	})

	t.Run("debit account owned by someone else", func(t *testing.T) {
		_, err := l.transfers.Create(ctx, transfer(payer.ID, foreign.ID, debit.ID, "10"))
		got := codes(t, err)
		assert.Contains(t, got, domain.ErrDebitAccountNotFound)
		assert.NotContains(t, got, domain.ErrInvalidAccounts)
		assert.Equal(t, "100", l.balanceOf(t, foreign.ID).String())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := l.transfers.Create(ctx, transfer(payer.ID, debit.ID, foreign.ID, "100.01"))
		assert.Equal(t, []domain.ErrorCode{domain.ErrInsufficientFunds}, codes(t, err))
	})

	t.Run("both accounts frozen", func(t *testing.T) {
		_, err := l.accounts.Freeze(ctx, payer.ID, debit.ID)
		require.NoError(t, err)
		_, err = l.accounts.Freeze(ctx, other.ID, foreign.ID)
		require.NoError(t, err)

		_, err = l.transfers.Create(ctx, transfer(payer.ID, debit.ID, foreign.ID, "10"))
		got := codes(t, err)
		assert.ElementsMatch(t, []domain.ErrorCode{domain.ErrDebitAccountFrozen, domain.ErrCreditAccountFrozen}, got)
	})

	assert.Equal(t, "100", l.balanceOf(t, debit.ID).String())
	assert.Zero(t, transactionCount(t, l, debit.ID))
}

func TestTransferServiceListRequiresOwnership(t *testing.T) {
	l := defaultLedger()
	_, account := l.createCustomer(t, "1000", "100")
	other, _ := l.createCustomer(t, "1000", "100")

	_, err := l.transfers.List(context.Background(), other.ID, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferServiceRandomSequenceKeepsBalancesNonNegative(t *testing.T) {
	l := defaultLedger()
	alice, a1 := l.createCustomer(t, "1000000", "300")
	bob, b1 := l.createCustomer(t, "1000000", "200")
	a2 := l.openFundedAccount(t, alice.ID, "50")
	b2 := l.openFundedAccount(t, bob.ID, "0")

	owners := map[uuid.UUID]uuid.UUID{a1.ID: alice.ID, a2.ID: alice.ID, b1.ID: bob.ID, b2.ID: bob.ID}
	ids := []uuid.UUID{a1.ID, a2.ID, b1.ID, b2.ID}
	total := dec("550")

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		debitID := ids[rng.Intn(len(ids))]
		creditID := ids[rng.Intn(len(ids))]
		amount := decimal.New(rng.Int63n(20000)-2000, -2)

		_, err := l.transfers.Create(context.Background(), transfer(owners[debitID], debitID, creditID, amount.String()))
		if err != nil {
			require.NotEmpty(t, domain.CodesOf(err), "unexpected failure: %v", err)
		}

		sum := decimal.Zero
		for _, id := range ids {
			balance := l.balanceOf(t, id)
			require.False(t, balance.IsNegative(), "negative balance on step %d", i)
			sum = sum.Add(balance)
		}
		require.True(t, total.Equal(sum), "money created or destroyed on step %d", i)
	}
}

func TestTransferServiceConcurrentTransfersNeverOverdraw(t *testing.T) {
	l := defaultLedger()
	payer, debit := l.createCustomer(t, "1000000", "1000")
	_, credit := l.createCustomer(t, "1000000", "0")

	var g errgroup.Group
	results := make([]error, 50)
	for i := range results {
		i := i
		g.Go(func() error {
			_, err := l.transfers.Create(context.Background(), transfer(payer.ID, debit.ID, credit.ID, "30"))
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}

	assert.Equal(t, 33, succeeded)
	assert.Equal(t, "10", l.balanceOf(t, debit.ID).String())
	assert.Equal(t, "990", l.balanceOf(t, credit.ID).String())
	assert.Equal(t, 33, transactionCount(t, l, debit.ID))
}
