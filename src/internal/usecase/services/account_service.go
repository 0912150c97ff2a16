package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/logger"
)

const maxAccountNumberAttempts = 5

type AccountService struct {
	accountRepo    domain.AccountRepository
	generateNumber AccountNumberGenerator
}

// NewAccountService builds the account lifecycle service. A nil generator
// selects RandomAccountNumber.
func NewAccountService(accountRepo domain.AccountRepository, generateNumber AccountNumberGenerator) *AccountService {
	if generateNumber == nil {
		generateNumber = RandomAccountNumber
	}
	return &AccountService{
		accountRepo:    accountRepo,
		generateNumber: generateNumber,
	}
}

func (s *AccountService) Create(ctx context.Context, customerID uuid.UUID) (domain.Account, error) {
	return s.OpenAccount(ctx, s.accountRepo, customerID)
}

// OpenAccount inserts a zero-balance account through accounts, regenerating
// the number on collision. Running out of attempts is fatal. A missing or
// deleted customer is domain.ErrNotFound.
func (s *AccountService) OpenAccount(ctx context.Context, accounts domain.AccountRepository, customerID uuid.UUID) (domain.Account, error) {
	logger.Info("account service open account request", logger.Fields{
		"customerId": customerID,
	})

	for attempt := 0; attempt < maxAccountNumberAttempts; attempt++ {
		number, err := s.generateNumber()
		if err != nil {
			logger.Error("account service generate account number failed", err, logger.Fields{
				"customerId": customerID,
			})
			return domain.Account{}, fmt.Errorf("generate account number: %w", err)
		}
		if !isAccountNumber(number) {
			return domain.Account{}, fmt.Errorf("generate account number: malformed candidate %q", number)
		}

		created, err := accounts.Create(ctx, domain.Account{
			CustomerID:    customerID,
			AccountNumber: number,
			Balance:       decimal.Zero,
		})
		if err == nil {
			logger.Info("account service open account success", logger.Fields{
				"customerId":    customerID,
				"accountId":     created.ID,
				"accountNumber": created.AccountNumber,
				"attempt":       attempt + 1,
			})
			return created, nil
		}
		if errors.Is(err, commons.ErrDuplicateRecord) {
			logger.Warn("account service account number collision", logger.Fields{
				"customerId": customerID,
				"attempt":    attempt + 1,
			})
			continue
		}
		if errors.Is(err, commons.ErrRecordNotFound) {
			logger.Warn("account service open account customer not found", logger.Fields{
				"customerId": customerID,
			})
			return domain.Account{}, domain.ErrNotFound
		}

		logger.Error("account service open account repository failed", err, logger.Fields{
			"customerId": customerID,
		})
		return domain.Account{}, fmt.Errorf("open account: %w", err)
	}

	logger.Error("account service account numbers exhausted", domain.ErrNoAccountsAvailable, logger.Fields{
		"customerId": customerID,
		"attempts":   maxAccountNumberAttempts,
	})
	return domain.Account{}, domain.ErrNoAccountsAvailable
}

func (s *AccountService) Get(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) (domain.Account, error) {
	account, err := s.accountRepo.GetForCustomer(ctx, customerID, accountID)
	if err != nil {
		return domain.Account{}, notFoundOr(err, "get account")
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		logger.Error("account service list accounts failed", err, logger.Fields{
			"customerId": customerID,
		})
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Freeze is idempotent: an account that is already frozen comes back as is.
func (s *AccountService) Freeze(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) (domain.Account, error) {
	logger.Info("account service freeze account request", logger.Fields{
		"customerId": customerID,
		"accountId":  accountID,
	})

	account, err := s.accountRepo.GetForCustomer(ctx, customerID, accountID)
	if err != nil {
		return domain.Account{}, notFoundOr(err, "get account")
	}
	if account.IsFrozen() {
		return account, nil
	}

	frozen, err := s.accountRepo.Freeze(ctx, account.ID, time.Now().UTC())
	if err != nil {
		logger.Error("account service freeze account failed", err, logger.Fields{
			"accountId": accountID,
		})
		return domain.Account{}, notFoundOr(err, "freeze account")
	}

	logger.Info("account service freeze account success", logger.Fields{
		"accountId": frozen.ID,
		"frozenAt":  frozen.FrozenAt,
	})
	return frozen, nil
}

func (s *AccountService) Delete(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) error {
	logger.Info("account service delete account request", logger.Fields{
		"customerId": customerID,
		"accountId":  accountID,
	})

	account, err := s.accountRepo.GetForCustomer(ctx, customerID, accountID)
	if err != nil {
		return notFoundOr(err, "get account")
	}
	if account.IsFrozen() {
		return domain.ErrAccountFrozen
	}
	if !account.Balance.IsZero() {
		return domain.ErrInvalidBalance
	}

	if err := s.accountRepo.SoftDelete(ctx, account.ID, time.Now().UTC()); err != nil {
		logger.Error("account service delete account failed", err, logger.Fields{
			"accountId": accountID,
		})
		return notFoundOr(err, "delete account")
	}

	logger.Info("account service delete account success", logger.Fields{
		"accountId": accountID,
	})
	return nil
}

// notFoundOr maps a missing record to domain.ErrNotFound, passes domain codes
// through and wraps anything else with op.
func notFoundOr(err error, op string) error {
	if errors.Is(err, commons.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	var code domain.ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return fmt.Errorf("%s: %w", op, err)
}
