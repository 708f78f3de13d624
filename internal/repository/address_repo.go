package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
)

const addressColumns = `id, customer_id, street, city, postal_code, latitude, longitude,
        is_default, created_at, updated_at`

// AddressRepository handles data access for customer addresses.
type AddressRepository struct {
	db *sqlx.DB
}

// NewAddressRepository creates a new AddressRepository.
func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// GetByID returns an address by id.
func (r *AddressRepository) GetByID(ctx context.Context, q database.Queryer, id string) (*models.Address, error) {
	var a models.Address
	err := sqlx.GetContext(ctx, conn(r.db, q), &a,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "address "+id)
	}
	return &a, nil
}

// FindByKey looks up the customer's address with exactly this street, city
// and postal code. A nil postal code matches only a NULL column.
func (r *AddressRepository) FindByKey(ctx context.Context, q database.Queryer, customerID, street, city string, postalCode *string) (*models.Address, error) {
	const query = `SELECT ` + addressColumns + `
        FROM addresses
        WHERE customer_id = $1 AND street = $2 AND city = $3
          AND postal_code IS NOT DISTINCT FROM $4
        LIMIT 1`

	var a models.Address
	err := sqlx.GetContext(ctx, conn(r.db, q), &a, query, customerID, street, city, postalCode)
	if err != nil {
		return nil, mapError(err, "address")
	}
	return &a, nil
}

// ClearDefault unsets the default flag on all of the customer's addresses.
func (r *AddressRepository) ClearDefault(ctx context.Context, q database.Queryer, customerID string) error {
	const query = `UPDATE addresses SET is_default = FALSE, updated_at = NOW()
        WHERE customer_id = $1 AND is_default`

	_, err := conn(r.db, q).ExecContext(ctx, query, customerID)
	return mapError(err, "address")
}

// Create inserts a, or returns the row a concurrent writer inserted first
// for the same key.
func (r *AddressRepository) Create(ctx context.Context, q database.Queryer, a *models.Address) (*models.Address, error) {
	const insert = `INSERT INTO addresses (id, customer_id, street, city, postal_code, latitude, longitude, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT DO NOTHING
        RETURNING ` + addressColumns

	var created models.Address
	err := sqlx.GetContext(ctx, conn(r.db, q), &created, insert,
		a.ID, a.CustomerID, a.Street, a.City, a.PostalCode, a.Latitude, a.Longitude, a.IsDefault)
	if err == nil {
		return &created, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError(err, "address")
	}
	return r.FindByKey(ctx, q, a.CustomerID, a.Street, a.City, a.PostalCode)
}
