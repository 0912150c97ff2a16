package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
	"github.com/api-sage/customer-ledger/src/internal/logger"
)

const customerColumns = `id, name, date_of_birth, daily_limit, created_at, updated_at, deleted_at`

type CustomerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	logger.Info("customer repository create", logger.Fields{
		"customerId": customer.ID,
	})

	const query = `
INSERT INTO customers (id, name, date_of_birth, daily_limit)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.DateOfBirth,
		customer.DailyLimit,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt); err != nil {
		logger.Error("customer repository create failed", err, logger.Fields{
			"customerId": customer.ID,
		})
		if isUniqueViolation(err) {
			return domain.Customer{}, commons.ErrDuplicateRecord
		}
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	logger.Info("customer repository create success", logger.Fields{
		"customerId": customer.ID,
	})
	return customer, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID, opts ...domain.ReadOption) (domain.Customer, error) {
	options := domain.ApplyReadOptions(opts...)

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	if !options.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("customer repository record not found", logger.Fields{
				"customerId": id,
			})
			return domain.Customer{}, commons.ErrRecordNotFound
		}
		logger.Error("customer repository get failed", err, logger.Fields{
			"customerId": id,
		})
		return domain.Customer{}, fmt.Errorf("get customer by id: %w", err)
	}

	return customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, opts ...domain.ReadOption) ([]domain.Customer, error) {
	options := domain.ApplyReadOptions(opts...)

	query := `SELECT ` + customerColumns + ` FROM customers`
	if !options.IncludeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("customer repository list failed", err, nil)
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	return customers, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	logger.Info("customer repository update", logger.Fields{
		"customerId": customer.ID,
	})

	const query = `
UPDATE customers
SET name = $2,
    date_of_birth = $3,
    daily_limit = $4,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
RETURNING ` + customerColumns

	updated, err := scanCustomer(r.db.QueryRowContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.DateOfBirth,
		customer.DailyLimit,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, commons.ErrRecordNotFound
		}
		logger.Error("customer repository update failed", err, logger.Fields{
			"customerId": customer.ID,
		})
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	logger.Info("customer repository update success", logger.Fields{
		"customerId": customer.ID,
	})
	return updated, nil
}

func (r *CustomerRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	logger.Info("customer repository soft delete", logger.Fields{
		"customerId": id,
	})

	const query = `
UPDATE customers
SET deleted_at = $2,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		logger.Error("customer repository soft delete failed", err, logger.Fields{
			"customerId": id,
		})
		return fmt.Errorf("soft delete customer: %w", err)
	}

	if err := requireRows(result); err != nil {
		return err
	}

	logger.Info("customer repository soft delete success", logger.Fields{
		"customerId": id,
	})
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var customer domain.Customer
	var deletedAt sql.NullTime
	if err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.DateOfBirth,
		&customer.DailyLimit,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&deletedAt,
	); err != nil {
		return domain.Customer{}, err
	}
	customer.DeletedAt = timePtr(deletedAt)
	return customer, nil
}

// requireRows turns an update that matched nothing into ErrRecordNotFound.
func requireRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return commons.ErrRecordNotFound
	}
	return nil
}
