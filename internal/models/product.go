package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. When HasVariants is set its own Price
// and Stock are ignored for ordering; the variant rows carry them instead.
type Product struct {
	ID          string          `db:"id" json:"id"`
	StoreID     string          `db:"store_id" json:"storeId"`
	Name        string          `db:"name" json:"name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Published   bool            `db:"published" json:"published"`
	HasVariants bool            `db:"has_variants" json:"hasVariants"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// VariantOption is a named axis such as "Size", scoped to one product.
type VariantOption struct {
	ID        string               `db:"id" json:"id"`
	ProductID string               `db:"product_id" json:"productId"`
	Name      string               `db:"name" json:"name"`
	Values    []VariantOptionValue `db:"-" json:"values"`
	CreatedAt time.Time            `db:"created_at" json:"-"`
}

// VariantOptionValue is one allowed value of an option, e.g. "M".
type VariantOptionValue struct {
	ID       string `db:"id" json:"id"`
	OptionID string `db:"option_id" json:"optionId"`
	Value    string `db:"value" json:"value"`
}

// VariantSelection pins one option to one of its values.
type VariantSelection struct {
	OptionID string `db:"option_id" json:"optionId"`
	ValueID  string `db:"value_id" json:"valueId"`
}

// Variant is a concrete option combination of a product with its own stock
// and an optional price override.
type Variant struct {
	ID           string              `db:"id" json:"id"`
	ProductID    string              `db:"product_id" json:"productId"`
	SKU          *string             `db:"sku" json:"sku,omitempty"`
	Price        decimal.NullDecimal `db:"price" json:"price"`
	Stock        int                 `db:"stock" json:"stock"`
	SelectionKey string              `db:"selection_key" json:"-"`
	Selections   []VariantSelection  `db:"-" json:"selections,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

// EffectivePrice returns the variant override, or fallback when unset.
func (v *Variant) EffectivePrice(fallback decimal.Decimal) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return fallback
}

// SelectionKey builds the canonical, order-independent key of a selection set.
// Two variants of one product with the same key are the same combination.
func SelectionKey(selections []VariantSelection) string {
	parts := make([]string, 0, len(selections))
	for _, s := range selections {
		parts = append(parts, s.OptionID+"="+s.ValueID)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
