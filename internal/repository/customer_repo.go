package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

const customerColumns = `id, store_id, name, phone, prefers_whatsapp, created_at, updated_at`

// CustomerRepository handles data access for store customers.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID returns a customer by id.
func (r *CustomerRepository) GetByID(ctx context.Context, q database.Queryer, id string) (*models.Customer, error) {
	var c models.Customer
	err := sqlx.GetContext(ctx, conn(r.db, q), &c,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "customer "+id)
	}
	return &c, nil
}

// FindOrCreate returns the customer with (phone, storeID), inserting it with
// name when absent. An existing customer is returned unchanged. Concurrent
// callers with the same phone converge on one row.
func (r *CustomerRepository) FindOrCreate(ctx context.Context, q database.Queryer, phone, name, storeID string) (*models.Customer, error) {
	const insert = `INSERT INTO customers (id, store_id, name, phone)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (phone, store_id) DO NOTHING
        RETURNING ` + customerColumns

	c := conn(r.db, q)
	var customer models.Customer
	err := sqlx.GetContext(ctx, c, &customer, insert, utils.NewID(), storeID, name, phone)
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError(err, "customer")
	}

	err = sqlx.GetContext(ctx, c, &customer,
		`SELECT `+customerColumns+` FROM customers WHERE phone = $1 AND store_id = $2`, phone, storeID)
	if err != nil {
		return nil, mapError(err, "customer")
	}
	return &customer, nil
}

// UpdateWhatsAppPreference sets the customer's preferred contact channel.
func (r *CustomerRepository) UpdateWhatsAppPreference(ctx context.Context, q database.Queryer, id string, prefers bool) error {
	const query = `UPDATE customers SET prefers_whatsapp = $2, updated_at = NOW() WHERE id = $1`

	res, err := conn(r.db, q).ExecContext(ctx, query, id, prefers)
	if err != nil {
		return mapError(err, "customer "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFoundf("customer %s not found", id)
	}
	return nil
}
