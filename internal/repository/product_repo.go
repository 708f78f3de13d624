package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

const (
	productColumns = `p.id, p.store_id, p.name, p.price, p.stock, p.published, p.has_variants,
        p.created_at, p.updated_at`
	variantColumns = `v.id, v.product_id, v.sku, v.price, v.stock, v.selection_key,
        v.created_at, v.updated_at`
)

// ProductRepository handles data access for products and their stock.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// LockProducts selects the store's products among ids with FOR NO KEY UPDATE.
// Rows are locked in id order. The lock serialises stock writers but, unlike
// FOR UPDATE, does not block the KEY SHARE lock taken by order_items FK checks.
func (r *ProductRepository) LockProducts(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + `
        FROM products p
        WHERE p.store_id = $1 AND p.id = ANY($2)
        ORDER BY p.id
        FOR NO KEY UPDATE`

	var products []models.Product
	if err := sqlx.SelectContext(ctx, conn(r.db, q), &products, query, storeID, pq.Array(ids)); err != nil {
		return nil, err
	}
	return products, nil
}

// LockVariants selects variants among ids whose product belongs to the store
// and locks only the variant rows.
func (r *ProductRepository) LockVariants(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Variant, error) {
	query := `SELECT ` + variantColumns + `
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE p.store_id = $1 AND v.id = ANY($2)
        ORDER BY v.id
        FOR NO KEY UPDATE OF v`

	var variants []models.Variant
	if err := sqlx.SelectContext(ctx, conn(r.db, q), &variants, query, storeID, pq.Array(ids)); err != nil {
		return nil, err
	}
	return variants, nil
}

// ListProducts reads the store's products among ids without locking.
func (r *ProductRepository) ListProducts(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + `
        FROM products p
        WHERE p.store_id = $1 AND p.id = ANY($2)`

	var products []models.Product
	if err := sqlx.SelectContext(ctx, conn(r.db, q), &products, query, storeID, pq.Array(ids)); err != nil {
		return nil, err
	}
	return products, nil
}

// ListVariants reads variants among ids scoped to the store without locking.
func (r *ProductRepository) ListVariants(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Variant, error) {
	query := `SELECT ` + variantColumns + `
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE p.store_id = $1 AND v.id = ANY($2)`

	var variants []models.Variant
	if err := sqlx.SelectContext(ctx, conn(r.db, q), &variants, query, storeID, pq.Array(ids)); err != nil {
		return nil, err
	}
	return variants, nil
}

// GetByID returns a single product by id.
func (r *ProductRepository) GetByID(ctx context.Context, q database.Queryer, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 LIMIT 1`

	var p models.Product
	if err := sqlx.GetContext(ctx, conn(r.db, q), &p, query, id); err != nil {
		return nil, mapError(err, "product "+id)
	}
	return &p, nil
}

// Create inserts a product.
func (r *ProductRepository) Create(ctx context.Context, q database.Queryer, p *models.Product) error {
	const query = `INSERT INTO products (id, store_id, name, price, stock, published, has_variants)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	err := conn(r.db, q).QueryRowxContext(ctx, query,
		p.ID, p.StoreID, p.Name, p.Price, p.Stock, p.Published, p.HasVariants,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError(err, "product "+p.ID)
}

// AdjustProductStock adds delta to the product stock. A result below zero is
// rejected by the stock check constraint.
func (r *ProductRepository) AdjustProductStock(ctx context.Context, q database.Queryer, productID string, delta int) error {
	const query = `UPDATE products SET stock = stock + $2, updated_at = NOW()
        WHERE id = $1 RETURNING stock`
	return r.adjust(ctx, q, query, "product "+productID, productID, delta)
}

// AdjustVariantStock adds delta to the variant stock.
func (r *ProductRepository) AdjustVariantStock(ctx context.Context, q database.Queryer, variantID string, delta int) error {
	const query = `UPDATE variants SET stock = stock + $2, updated_at = NOW()
        WHERE id = $1 RETURNING stock`
	return r.adjust(ctx, q, query, "variant "+variantID, variantID, delta)
}

func (r *ProductRepository) adjust(ctx context.Context, q database.Queryer, query, subject, id string, delta int) error {
	var stock int
	if err := sqlx.GetContext(ctx, conn(r.db, q), &stock, query, id, delta); err != nil {
		return mapError(err, subject)
	}
	return nil
}

// SetHasVariants flags a product as sold through its variants.
func (r *ProductRepository) SetHasVariants(ctx context.Context, q database.Queryer, productID string) error {
	const query = `UPDATE products SET has_variants = TRUE, updated_at = NOW() WHERE id = $1`

	res, err := conn(r.db, q).ExecContext(ctx, query, productID)
	if err != nil {
		return mapError(err, "product "+productID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFoundf("product %s not found", productID)
	}
	return nil
}
