package service

import (
	"context"
	"errors"
	"strings"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// AddressInput is a shipping address as typed by the customer.
type AddressInput struct {
	Street     string   `json:"street"`
	City       string   `json:"city"`
	PostalCode *string  `json:"postalCode"`
	IsDefault  bool     `json:"isDefault"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

func (a *AddressInput) normalize() error {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	if a.Street == "" || a.City == "" {
		return utils.BadRequestf("address street and city are required")
	}
	if a.PostalCode != nil {
		pc := strings.TrimSpace(*a.PostalCode)
		if pc == "" {
			a.PostalCode = nil
		} else {
			a.PostalCode = &pc
		}
	}
	return nil
}

// IdentityResolver maps guest contact details onto customer and address
// rows, reusing existing ones.
type IdentityResolver struct {
	customers CustomerRepository
	addresses AddressRepository
}

// NewIdentityResolver constructs an IdentityResolver.
func NewIdentityResolver(customers CustomerRepository, addresses AddressRepository) *IdentityResolver {
	return &IdentityResolver{customers: customers, addresses: addresses}
}

// FindOrCreateCustomer returns the store's customer with phone, creating it
// with name if needed. The name of an existing customer is left alone.
func (r *IdentityResolver) FindOrCreateCustomer(ctx context.Context, q database.Queryer, phone, name, storeID string) (*models.Customer, error) {
	return r.customers.FindOrCreate(ctx, q, phone, name, storeID)
}

// CreateOrFindAddress returns the customer's address matching in exactly, or
// inserts it. A new default address first clears the previous default.
func (r *IdentityResolver) CreateOrFindAddress(ctx context.Context, q database.Queryer, in AddressInput, customerID string) (*models.Address, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	existing, err := r.addresses.FindByKey(ctx, q, customerID, in.Street, in.City, in.PostalCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}

	if in.IsDefault {
		if err := r.addresses.ClearDefault(ctx, q, customerID); err != nil {
			return nil, err
		}
	}
	return r.addresses.Create(ctx, q, &models.Address{
		ID:         utils.NewID(),
		CustomerID: customerID,
		Street:     in.Street,
		City:       in.City,
		PostalCode: in.PostalCode,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		IsDefault:  in.IsDefault,
	})
}

// ResolveAddressID loads addressID and checks it belongs to customerID.
func (r *IdentityResolver) ResolveAddressID(ctx context.Context, q database.Queryer, addressID, customerID string) (*models.Address, error) {
	a, err := r.addresses.GetByID(ctx, q, addressID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.BadRequestf("address %s does not belong to the customer", addressID)
		}
		return nil, err
	}
	if a.CustomerID != customerID {
		return nil, utils.BadRequestf("address %s does not belong to the customer", addressID)
	}
	return a, nil
}
