package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/customer-ledger/src/internal/commons"
	"github.com/api-sage/customer-ledger/src/internal/domain"
)

type CustomerRepository struct {
	view view
	now  func() time.Time
}

func (r *CustomerRepository) Create(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	err := r.view.run(func(st *state) error {
		if _, exists := st.customers[customer.ID]; exists {
			return commons.ErrDuplicateRecord
		}
		now := r.now()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		customer.DeletedAt = nil
		customer.Accounts = nil
		st.customers[customer.ID] = customer
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (r *CustomerRepository) GetByID(_ context.Context, id uuid.UUID, opts ...domain.ReadOption) (domain.Customer, error) {
	options := domain.ApplyReadOptions(opts...)

	var customer domain.Customer
	err := r.view.run(func(st *state) error {
		found, ok := st.customers[id]
		if !ok || !visible(found.DeletedAt, options) {
			return commons.ErrRecordNotFound
		}
		customer = found
		return nil
	})
	return customer, err
}

func (r *CustomerRepository) List(_ context.Context, opts ...domain.ReadOption) ([]domain.Customer, error) {
	options := domain.ApplyReadOptions(opts...)

	customers := make([]domain.Customer, 0)
	err := r.view.run(func(st *state) error {
		for _, customer := range st.customers {
			if visible(customer.DeletedAt, options) {
				customers = append(customers, customer)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(customers, func(i, j int) bool {
		if customers[i].CreatedAt.Equal(customers[j].CreatedAt) {
			return customers[i].ID.String() < customers[j].ID.String()
		}
		return customers[i].CreatedAt.Before(customers[j].CreatedAt)
	})
	return customers, nil
}

func (r *CustomerRepository) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	var updated domain.Customer
	err := r.view.run(func(st *state) error {
		current, ok := st.customers[customer.ID]
		if !ok || current.DeletedAt != nil {
			return commons.ErrRecordNotFound
		}
		current.Name = customer.Name
		current.DateOfBirth = customer.DateOfBirth
		current.DailyLimit = customer.DailyLimit
		current.UpdatedAt = r.now()
		st.customers[current.ID] = current
		updated = current
		return nil
	})
	return updated, err
}

func (r *CustomerRepository) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.view.run(func(st *state) error {
		current, ok := st.customers[id]
		if !ok || current.DeletedAt != nil {
			return commons.ErrRecordNotFound
		}
		current.DeletedAt = timeRef(at)
		current.UpdatedAt = r.now()
		st.customers[id] = current
		return nil
	})
}
