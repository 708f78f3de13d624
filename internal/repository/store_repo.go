package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
)

// StoreRepository reads storefronts.
type StoreRepository struct {
	db *sqlx.DB
}

// NewStoreRepository creates a new StoreRepository.
func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// getBy fetches one store matching clause, which must end in LIMIT 1.
// supported_payment_methods is scanned via pq.Array.
func (r *StoreRepository) getBy(ctx context.Context, q database.Queryer, clause string, args ...any) (*models.Store, error) {
	const base = `SELECT id, slug, name, owner_id, status, supported_payment_methods,
        shipping_cost, created_at, updated_at
        FROM stores WHERE `

	var (
		s       models.Store
		methods []string
	)
	err := conn(r.db, q).QueryRowxContext(ctx, base+clause, args...).Scan(
		&s.ID,
		&s.Slug,
		&s.Name,
		&s.OwnerID,
		&s.Status,
		pq.Array(&methods),
		&s.ShippingCost,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "store")
	}
	s.SupportedPaymentMethods = make([]models.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		s.SupportedPaymentMethods = append(s.SupportedPaymentMethods, models.PaymentMethod(m))
	}
	return &s, nil
}

// GetByID returns a store by id.
func (r *StoreRepository) GetByID(ctx context.Context, q database.Queryer, id string) (*models.Store, error) {
	return r.getBy(ctx, q, "id = $1 LIMIT 1", id)
}

// GetBySlugOrID resolves the storefront path segment, which may be either the
// slug or the id. A slug match wins over an id match.
func (r *StoreRepository) GetBySlugOrID(ctx context.Context, q database.Queryer, ref string) (*models.Store, error) {
	return r.getBy(ctx, q, "slug = $1 OR id = $1 ORDER BY (slug = $1) DESC LIMIT 1", ref)
}

// Create inserts a store. Used by seeding and tests; store management itself
// lives in the dashboard service.
func (r *StoreRepository) Create(ctx context.Context, q database.Queryer, s *models.Store) error {
	const query = `INSERT INTO stores (id, slug, name, owner_id, status, supported_payment_methods, shipping_cost)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	methods := make([]string, 0, len(s.SupportedPaymentMethods))
	for _, m := range s.SupportedPaymentMethods {
		methods = append(methods, string(m))
	}
	err := conn(r.db, q).QueryRowxContext(ctx, query,
		s.ID, s.Slug, s.Name, s.OwnerID, s.Status, pq.Array(methods), s.ShippingCost,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapError(err, "store "+s.Slug)
}
