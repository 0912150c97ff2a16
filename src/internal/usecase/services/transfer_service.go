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
	"github.com/api-sage/customer-ledger/src/internal/usecase/service_interfaces"
)

type TransferSettings struct {
	// DailyLimitWindow is how far back debits count toward the daily limit.
	// Zero counts every debit the account ever made.
	DailyLimitWindow time.Duration
	// CreditBeneficiary adds the amount to the credit account as well.
	CreditBeneficiary bool
}

type TransferService struct {
	uow             domain.UnitOfWork
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	settings        TransferSettings
}

func NewTransferService(uow domain.UnitOfWork, repos domain.Repositories, settings TransferSettings) *TransferService {
	return &TransferService{
		uow:             uow,
		accountRepo:     repos.Accounts,
		transactionRepo: repos.Transactions,
		settings:        settings,
	}
}

func (s *TransferService) Create(ctx context.Context, req service_interfaces.CreateTransferRequest) (domain.Transaction, error) {
	logger.Info("transfer service create transfer request", logger.Fields{
		"customerId":      req.CustomerID,
		"debitAccountId":  req.DebitAccountID,
		"creditAccountId": req.CreditAccountID,
		"amount":          req.Amount,
	})

	if err := validateTransferRequest(req); err != nil {
		logger.Info("transfer service create transfer rejected", logger.Fields{
			"errors": domain.CodesOf(err),
		})
		return domain.Transaction{}, err
	}

	var created domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		debit, credit, err := s.checkAccounts(ctx, repos, req)
		if err != nil {
			return err
		}

		if err := s.checkDailyLimit(ctx, repos, req, debit); err != nil {
			return err
		}

		transaction, err := s.post(ctx, repos, req, debit, credit)
		if err != nil {
			return err
		}
		created = transaction
		return nil
	})
	if err != nil {
		if codes := domain.CodesOf(err); len(codes) > 0 {
			logger.Info("transfer service create transfer rejected", logger.Fields{
				"customerId": req.CustomerID,
				"errors":     codes,
			})
		} else {
			logger.Error("transfer service create transfer failed", err, logger.Fields{
				"customerId": req.CustomerID,
			})
		}
		return domain.Transaction{}, err
	}

	logger.Info("transfer service create transfer success", logger.Fields{
		"transactionId":       created.ID,
		"debitAccountNumber":  created.DebitAccountNumber,
		"creditAccountNumber": created.CreditAccountNumber,
		"amount":              created.Amount,
	})
	return created, nil
}

// validateTransferRequest holds the checks that need no stored state.
func validateTransferRequest(req service_interfaces.CreateTransferRequest) error {
	var errs domain.ValidationErrors
	if !req.Amount.IsPositive() || !domain.FitsMoneyScale(req.Amount) {
		errs = errs.Add(domain.ErrInvalidAmount)
	}
	if req.DebitAccountID == req.CreditAccountID {
		errs = errs.Add(domain.ErrInvalidAccounts)
	}
	return errs.Err()
}

// checkAccounts locks both accounts and collects every reason the transfer
// cannot proceed. It returns both accounts when all checks pass.
func (s *TransferService) checkAccounts(ctx context.Context, repos domain.Repositories, req service_interfaces.CreateTransferRequest) (domain.Account, domain.Account, error) {
	locked, err := repos.Accounts.LockByIDs(ctx, req.DebitAccountID, req.CreditAccountID)
	if err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("lock transfer accounts: %w", err)
	}

	var debit, credit *domain.Account
	for i := range locked {
		switch locked[i].ID {
		case req.DebitAccountID:
			debit = &locked[i]
		case req.CreditAccountID:
			credit = &locked[i]
		}
	}

	var errs domain.ValidationErrors
	if debit == nil || credit == nil {
		errs = errs.Add(domain.ErrInvalidAccounts)
	}

	// A debit account owned by someone else is reported as not found.
	if debit != nil && debit.CustomerID != req.CustomerID {
		debit = nil
	}
	if debit == nil {
		errs = errs.Add(domain.ErrDebitAccountNotFound)
	}
	if credit == nil {
		errs = errs.Add(domain.ErrCreditAccountNotFound)
	}

	if debit != nil && debit.IsFrozen() {
		errs = errs.Add(domain.ErrDebitAccountFrozen)
	}
	if credit != nil && credit.IsFrozen() {
		errs = errs.Add(domain.ErrCreditAccountFrozen)
	}

	balance := decimal.Zero
	if debit != nil {
		balance = debit.Balance
	}
	if balance.LessThan(req.Amount) {
		errs = errs.Add(domain.ErrInsufficientFunds)
	}

	if err := errs.Err(); err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	return *debit, *credit, nil
}

func (s *TransferService) checkDailyLimit(ctx context.Context, repos domain.Repositories, req service_interfaces.CreateTransferRequest, debit domain.Account) error {
	customer, err := repos.Customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return domain.ValidationErrors{domain.ErrDebitAccountNotFound}
		}
		return fmt.Errorf("get transfer customer: %w", err)
	}

	var since time.Time
	if s.settings.DailyLimitWindow > 0 {
		since = time.Now().UTC().Add(-s.settings.DailyLimitWindow)
	}

	spent, err := repos.Transactions.SumDebits(ctx, debit.ID, since)
	if err != nil {
		return fmt.Errorf("sum daily debits: %w", err)
	}

	if spent.Add(req.Amount).GreaterThan(customer.DailyLimit) {
		logger.Info("transfer service daily limit reached", logger.Fields{
			"customerId": req.CustomerID,
			"spent":      spent,
			"amount":     req.Amount,
			"dailyLimit": customer.DailyLimit,
		})
		return domain.ValidationErrors{domain.ErrDailyLimitReached}
	}
	return nil
}

// post records the transaction and moves the money in the caller's unit of work.
func (s *TransferService) post(ctx context.Context, repos domain.Repositories, req service_interfaces.CreateTransferRequest, debit domain.Account, credit domain.Account) (domain.Transaction, error) {
	transaction, err := repos.Transactions.Create(ctx, domain.Transaction{
		ID:                  uuid.New(),
		DebitAccountID:      debit.ID,
		CreditAccountID:     credit.ID,
		DebitAccountNumber:  debit.AccountNumber,
		CreditAccountNumber: credit.AccountNumber,
		Amount:              req.Amount,
		Reference:           req.Reference,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	if err := repos.Accounts.Debit(ctx, debit.ID, req.Amount); err != nil {
		switch {
		case errors.Is(err, commons.ErrInsufficientBalance):
			return domain.Transaction{}, domain.ValidationErrors{domain.ErrInsufficientFunds}
		case errors.Is(err, domain.ErrAccountFrozen):
			return domain.Transaction{}, domain.ValidationErrors{domain.ErrDebitAccountFrozen}
		default:
			return domain.Transaction{}, fmt.Errorf("debit account: %w", err)
		}
	}

	if s.settings.CreditBeneficiary {
		if err := repos.Accounts.Credit(ctx, credit.ID, req.Amount); err != nil {
			if errors.Is(err, domain.ErrAccountFrozen) {
				return domain.Transaction{}, domain.ValidationErrors{domain.ErrCreditAccountFrozen}
			}
			return domain.Transaction{}, fmt.Errorf("credit account: %w", err)
		}
	}

	return transaction, nil
}

func (s *TransferService) List(ctx context.Context, customerID uuid.UUID, accountID uuid.UUID) ([]domain.Transaction, error) {
	logger.Info("transfer service list transactions request", logger.Fields{
		"customerId": customerID,
		"accountId":  accountID,
	})

	if _, err := s.accountRepo.GetForCustomer(ctx, customerID, accountID); err != nil {
		return nil, notFoundOr(err, "get account")
	}

	transactions, err := s.transactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		logger.Error("transfer service list transactions failed", err, logger.Fields{
			"accountId": accountID,
		})
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return transactions, nil
}
