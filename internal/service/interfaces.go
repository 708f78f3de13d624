package service

import (
	"context"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/stock"
)

// Storage interfaces the services depend on. The repository package provides
// the Postgres implementations; every method takes the query handle so the
// caller decides what runs inside a transaction. A nil handle means the pool.

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx database.Queryer) error) error
}

type StoreRepository interface {
	GetByID(ctx context.Context, q database.Queryer, id string) (*models.Store, error)
}

// StoreLookup resolves a storefront path segment, possibly from cache.
type StoreLookup interface {
	GetBySlugOrID(ctx context.Context, ref string) (*models.Store, error)
}

type ProductRepository interface {
	stock.Repository
	ListProducts(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Product, error)
	ListVariants(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Variant, error)
	GetByID(ctx context.Context, q database.Queryer, id string) (*models.Product, error)
	SetHasVariants(ctx context.Context, q database.Queryer, productID string) error
}

type VariantRepository interface {
	GetOptions(ctx context.Context, q database.Queryer, productID string) ([]models.VariantOption, error)
	CreateOption(ctx context.Context, q database.Queryer, opt *models.VariantOption) error
	CreateVariant(ctx context.Context, q database.Queryer, v *models.Variant) error
}

type CustomerRepository interface {
	GetByID(ctx context.Context, q database.Queryer, id string) (*models.Customer, error)
	FindOrCreate(ctx context.Context, q database.Queryer, phone, name, storeID string) (*models.Customer, error)
	UpdateWhatsAppPreference(ctx context.Context, q database.Queryer, id string, prefers bool) error
}

type AddressRepository interface {
	GetByID(ctx context.Context, q database.Queryer, id string) (*models.Address, error)
	FindByKey(ctx context.Context, q database.Queryer, customerID, street, city string, postalCode *string) (*models.Address, error)
	ClearDefault(ctx context.Context, q database.Queryer, customerID string) error
	Create(ctx context.Context, q database.Queryer, a *models.Address) (*models.Address, error)
}

type OrderRepository interface {
	Create(ctx context.Context, q database.Queryer, o *models.Order) error
	CreateItems(ctx context.Context, q database.Queryer, items []models.OrderItem) error
	GetByID(ctx context.Context, q database.Queryer, id string, forUpdate bool) (*models.Order, error)
	GetItems(ctx context.Context, q database.Queryer, orderID string) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, q database.Queryer, o *models.Order, status models.OrderStatus) error
	Delete(ctx context.Context, q database.Queryer, id string) error
}

// IdempotencyStore backs the Idempotency-Key header of the public endpoint.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, scope, key, orderID string) error
	Release(ctx context.Context, scope, key string) error
}
