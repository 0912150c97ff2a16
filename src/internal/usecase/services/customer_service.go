package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/logger"
	"github.com/api-sage/customer-ledger/src/internal/usecase/service_interfaces"
)

type CustomerService struct {
	uow               domain.UnitOfWork
	customerRepo      domain.CustomerRepository
	accountRepo       domain.AccountRepository
	accountOpener     service_interfaces.AccountOpener
	defaultDailyLimit decimal.Decimal
}

func NewCustomerService(
	uow domain.UnitOfWork,
	repos domain.Repositories,
	accountOpener service_interfaces.AccountOpener,
	defaultDailyLimit decimal.Decimal,
) *CustomerService {
	return &CustomerService{
		uow:               uow,
		customerRepo:      repos.Customers,
		accountRepo:       repos.Accounts,
		accountOpener:     accountOpener,
		defaultDailyLimit: defaultDailyLimit,
	}
}

// Create stores the customer together with its first account, funded with
// the initial balance. Nothing is stored unless every step succeeds.
func (s *CustomerService) Create(ctx context.Context, req service_interfaces.CreateCustomerRequest) (domain.Customer, error) {
	logger.Info("customer service create customer request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := validateCreateCustomerRequest(req); err != nil {
		logger.Info("customer service create customer rejected", logger.Fields{
			"errors": domain.CodesOf(err),
		})
		return domain.Customer{}, err
	}

	dailyLimit := s.defaultDailyLimit
	if req.DailyLimit != nil {
		dailyLimit = *req.DailyLimit
	}

	var created domain.Customer
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		customer, err := repos.Customers.Create(ctx, domain.Customer{
			ID:          uuid.New(),
			Name:        strings.TrimSpace(req.Name),
			DateOfBirth: dateOnly(*req.DateOfBirth),
			DailyLimit:  dailyLimit,
		})
		if err != nil {
			return fmt.Errorf("create customer: %w", err)
		}

		account, err := s.accountOpener.OpenAccount(ctx, repos.Accounts, customer.ID)
		if err != nil {
			logger.Error("customer service initial account failed", err, logger.Fields{
				"customerId": customer.ID,
			})
			return fmt.Errorf("%w: %w", domain.ErrInitialAccountFailed, err)
		}

		if req.InitialBalance.IsPositive() {
			seeded, err := repos.Accounts.SeedBalance(ctx, account.ID, req.InitialBalance)
			if err != nil {
				logger.Error("customer service initial balance failed", err, logger.Fields{
					"customerId": customer.ID,
					"accountId":  account.ID,
				})
				return fmt.Errorf("%w: %w", domain.ErrInitialAccountFailed, err)
			}
			account = seeded
		}

		customer.Accounts = []domain.Account{account}
		created = customer
		return nil
	})
	if err != nil {
		logger.Error("customer service create customer failed", err, nil)
		return domain.Customer{}, err
	}

	logger.Info("customer service create customer success", logger.Fields{
		"customerId":    created.ID,
		"accountNumber": created.Accounts[0].AccountNumber,
	})
	return created, nil
}

func validateCreateCustomerRequest(req service_interfaces.CreateCustomerRequest) error {
	var errs domain.ValidationErrors
	if strings.TrimSpace(req.Name) == "" {
		errs = errs.Add(domain.ErrInvalidName)
	}
	if req.DateOfBirth == nil || req.DateOfBirth.IsZero() {
		errs = errs.Add(domain.ErrInvalidDateOfBirth)
	}
	if req.DailyLimit != nil && !validMoney(*req.DailyLimit) {
		errs = errs.Add(domain.ErrInvalidDailyLimit)
	}
	if !validMoney(req.InitialBalance) {
		errs = errs.Add(domain.ErrInvalidInitialBalance)
	}
	return errs.Err()
}

func validMoney(amount decimal.Decimal) bool {
	return !amount.IsNegative() && domain.FitsMoneyScale(amount)
}

func (s *CustomerService) Get(ctx context.Context, customerID uuid.UUID) (domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return domain.Customer{}, notFoundOr(err, "get customer")
	}
	return s.withAccounts(ctx, customer)
}

// Update changes the supplied fields. A missing customer fails before the
// fields are validated.
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req service_interfaces.UpdateCustomerRequest) (domain.Customer, error) {
	logger.Info("customer service update customer request", logger.Fields{
		"customerId": customerID,
		"payload":    logger.SanitizePayload(req),
	})

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return domain.Customer{}, notFoundOr(err, "get customer")
	}

	var errs domain.ValidationErrors
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errs = errs.Add(domain.ErrInvalidName)
	}
	if req.DailyLimit != nil && !validMoney(*req.DailyLimit) {
		errs = errs.Add(domain.ErrInvalidDailyLimit)
	}
	if err := errs.Err(); err != nil {
		return domain.Customer{}, err
	}

	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.DateOfBirth != nil && !req.DateOfBirth.IsZero() {
		customer.DateOfBirth = dateOnly(*req.DateOfBirth)
	}
	if req.DailyLimit != nil {
		customer.DailyLimit = *req.DailyLimit
	}

	updated, err := s.customerRepo.Update(ctx, customer)
	if err != nil {
		logger.Error("customer service update customer failed", err, logger.Fields{
			"customerId": customerID,
		})
		return domain.Customer{}, notFoundOr(err, "update customer")
	}

	logger.Info("customer service update customer success", logger.Fields{
		"customerId": customerID,
	})
	return s.withAccounts(ctx, updated)
}

// Delete soft-deletes the customer only. Its accounts are left untouched.
func (s *CustomerService) Delete(ctx context.Context, customerID uuid.UUID) error {
	logger.Info("customer service delete customer request", logger.Fields{
		"customerId": customerID,
	})

	if err := s.customerRepo.SoftDelete(ctx, customerID, time.Now().UTC()); err != nil {
		if !errors.Is(err, commons.ErrRecordNotFound) {
			logger.Error("customer service delete customer failed", err, logger.Fields{
				"customerId": customerID,
			})
		}
		return notFoundOr(err, "delete customer")
	}

	logger.Info("customer service delete customer success", logger.Fields{
		"customerId": customerID,
	})
	return nil
}

func (s *CustomerService) List(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		logger.Error("customer service list customers failed", err, nil)
		return nil, fmt.Errorf("list customers: %w", err)
	}

	for i := range customers {
		withAccounts, err := s.withAccounts(ctx, customers[i])
		if err != nil {
			return nil, err
		}
		customers[i] = withAccounts
	}
	return customers, nil
}

func (s *CustomerService) Exists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get customer: %w", err)
	}
	return true, nil
}

func (s *CustomerService) withAccounts(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	accounts, err := s.accountRepo.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("list customer accounts: %w", err)
	}
	customer.Accounts = accounts
	return customer, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
