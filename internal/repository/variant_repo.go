package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
)

// VariantRepository stores variant options, their values and the variants
// built from them.
type VariantRepository struct {
	db *sqlx.DB
}

// NewVariantRepository creates a new VariantRepository.
func NewVariantRepository(db *sqlx.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// GetOptions returns the product's options with their values, ordered by
// creation.
func (r *VariantRepository) GetOptions(ctx context.Context, q database.Queryer, productID string) ([]models.VariantOption, error) {
	const optionsQuery = `SELECT id, product_id, name, created_at
        FROM variant_options WHERE product_id = $1
        ORDER BY created_at, id`

	c := conn(r.db, q)
	var options []models.VariantOption
	if err := sqlx.SelectContext(ctx, c, &options, optionsQuery, productID); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return options, nil
	}

	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}

	const valuesQuery = `SELECT id, option_id, value
        FROM variant_option_values WHERE option_id = ANY($1)
        ORDER BY value`
	var values []models.VariantOptionValue
	if err := sqlx.SelectContext(ctx, c, &values, valuesQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	byOption := make(map[string][]models.VariantOptionValue, len(options))
	for _, v := range values {
		byOption[v.OptionID] = append(byOption[v.OptionID], v)
	}
	for i := range options {
		options[i].Values = byOption[options[i].ID]
	}
	return options, nil
}

// CreateOption inserts an option and all of its values.
func (r *VariantRepository) CreateOption(ctx context.Context, q database.Queryer, opt *models.VariantOption) error {
	const optionQuery = `INSERT INTO variant_options (id, product_id, name)
        VALUES ($1, $2, $3) RETURNING created_at`
	const valueQuery = `INSERT INTO variant_option_values (id, option_id, value) VALUES ($1, $2, $3)`

	c := conn(r.db, q)
	if err := c.QueryRowxContext(ctx, optionQuery, opt.ID, opt.ProductID, opt.Name).Scan(&opt.CreatedAt); err != nil {
		return mapError(err, "option "+opt.Name)
	}
	for _, v := range opt.Values {
		if _, err := c.ExecContext(ctx, valueQuery, v.ID, opt.ID, v.Value); err != nil {
			return mapError(err, "option value "+v.Value)
		}
	}
	return nil
}

// CreateVariant inserts a variant and its selections. A second variant with
// the same selection key on one product violates uq_variants_selection.
func (r *VariantRepository) CreateVariant(ctx context.Context, q database.Queryer, v *models.Variant) error {
	const variantQuery = `INSERT INTO variants (id, product_id, sku, price, stock, selection_key)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`
	const selectionQuery = `INSERT INTO variant_selections (variant_id, option_id, value_id) VALUES ($1, $2, $3)`

	c := conn(r.db, q)
	err := c.QueryRowxContext(ctx, variantQuery,
		v.ID, v.ProductID, v.SKU, v.Price, v.Stock, v.SelectionKey,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return mapError(err, "variant with this selection")
	}
	for _, s := range v.Selections {
		if _, err := c.ExecContext(ctx, selectionQuery, v.ID, s.OptionID, s.ValueID); err != nil {
			return mapError(err, "variant selection")
		}
	}
	return nil
}
