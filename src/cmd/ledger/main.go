package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/api-sage/customer-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/customer-ledger/src/internal/config"
	"github.com/api-sage/customer-ledger/src/internal/logger"
	"github.com/api-sage/customer-ledger/src/internal/usecase/service_interfaces"
	"github.com/api-sage/customer-ledger/src/internal/usecase/services"
)

type ledger struct {
	accounts  service_interfaces.AccountService
	transfers service_interfaces.TransferService
	customers service_interfaces.CustomerService
}

func newLedger(db *sql.DB, cfg config.Config) ledger {
	store := postgres.NewStore(db)
	repos := store.Repositories()
	accounts := services.NewAccountService(repos.Accounts, nil)

	return ledger{
		accounts: accounts,
		transfers: services.NewTransferService(store, repos, services.TransferSettings{
			DailyLimitWindow:  cfg.DailyLimitWindow,
			CreditBeneficiary: cfg.CreditBeneficiary,
		}),
		customers: services.NewCustomerService(store, repos, accounts, cfg.DefaultDailyLimit),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.Info("ledger starting", logger.Fields{
		"database":          cfg.Redact().DatabaseDSN,
		"dailyLimitWindow":  cfg.DailyLimitWindow.String(),
		"creditBeneficiary": cfg.CreditBeneficiary,
	})

	if err := run(cfg); err != nil {
		logger.Error("ledger stopped", err, nil)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN); err != nil {
			return err
		}
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN, postgres.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := newLedger(db, cfg).checkReadiness(ctx)
	if err != nil {
		return fmt.Errorf("ledger readiness check: %w", err)
	}

	logger.Info("ledger ready", summary)
	return nil
}

// checkReadiness walks the read path of every service: customers, then the
// first customer's accounts, then that account's transactions.
func (l ledger) checkReadiness(ctx context.Context) (logger.Fields, error) {
	summary := logger.Fields{}

	customers, err := l.customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	summary["customers"] = len(customers)
	if len(customers) == 0 {
		return summary, nil
	}

	first := customers[0]
	accounts, err := l.accounts.List(ctx, first.ID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	summary["sampleCustomerAccounts"] = len(accounts)
	if len(accounts) == 0 {
		return summary, nil
	}

	transactions, err := l.transfers.List(ctx, first.ID, accounts[0].ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	summary["sampleAccountTransactions"] = len(transactions)
	return summary, nil
}
