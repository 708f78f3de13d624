// Package stock guards and mutates the product and variant stock counters.
// Every change goes through a Checker and a Ledger running on the caller's
// transaction handle.
package stock

import (
	"context"
	"math"
	"sort"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// MaxQuantity is the largest quantity a stock counter or an order line can
// hold. It matches the INTEGER columns.
const MaxQuantity = math.MaxInt32

// Repository is the storage the stock components need.
type Repository interface {
	// LockProducts returns the products of storeID among ids and holds a row
	// lock on each until q's transaction ends.
	LockProducts(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Product, error)
	// LockVariants does the same for variants whose parent product is in storeID.
	LockVariants(ctx context.Context, q database.Queryer, storeID string, ids []string) ([]models.Variant, error)
	AdjustProductStock(ctx context.Context, q database.Queryer, productID string, delta int) error
	AdjustVariantStock(ctx context.Context, q database.Queryer, variantID string, delta int) error
}

// Line is one requested cart or order line.
type Line struct {
	ProductID string
	VariantID string
	Quantity  int
}

// Target is the stock counter a line draws from: either a ProductTarget or a
// VariantTarget. Both are comparable so a Target can key a map.
type Target interface {
	Product() string
	isTarget()
}

// ProductTarget is the stock of a product without variants.
type ProductTarget struct {
	ProductID string
}

// VariantTarget is the stock of one variant of ProductID.
type VariantTarget struct {
	ProductID string
	VariantID string
}

func (t ProductTarget) Product() string { return t.ProductID }
func (t VariantTarget) Product() string { return t.ProductID }
func (ProductTarget) isTarget()         {}
func (VariantTarget) isTarget()         {}

// TargetOf resolves the counter l draws from.
func TargetOf(l Line) Target {
	if l.VariantID != "" {
		return VariantTarget{ProductID: l.ProductID, VariantID: l.VariantID}
	}
	return ProductTarget{ProductID: l.ProductID}
}

// Demand is the total quantity requested from one Target.
type Demand struct {
	Target   Target
	Quantity int
}

// Aggregate sums quantities per Target so duplicate lines count once each
// towards the same counter. The result lists variant demands ordered by
// variant id, then product demands ordered by product id; locks and updates
// follow that order in every transaction.
func Aggregate(lines []Line) ([]Demand, error) {
	if len(lines) == 0 {
		return nil, utils.BadRequestf("at least one line item is required")
	}

	totals := make(map[Target]int, len(lines))
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, utils.BadRequestf("line %d: product id is required", i)
		}
		if l.Quantity < 1 {
			return nil, utils.BadRequestf("line %d: quantity must be at least 1", i)
		}
		if l.Quantity > MaxQuantity {
			return nil, utils.BadRequestf("line %d: quantity must be at most %d", i, MaxQuantity)
		}
		t := TargetOf(l)
		if totals[t] > MaxQuantity-l.Quantity {
			return nil, utils.BadRequestf("line %d: total quantity for %s exceeds %d", i, l.ProductID, MaxQuantity)
		}
		totals[t] += l.Quantity
	}

	demands := make([]Demand, 0, len(totals))
	for t, q := range totals {
		demands = append(demands, Demand{Target: t, Quantity: q})
	}
	sort.Slice(demands, func(i, j int) bool {
		return sortKey(demands[i].Target) < sortKey(demands[j].Target)
	})
	return demands, nil
}

func sortKey(t Target) string {
	switch t := t.(type) {
	case VariantTarget:
		return "0:" + t.VariantID
	case ProductTarget:
		return "1:" + t.ProductID
	}
	return "2:"
}

// split partitions demands into the variant and product groups.
func split(demands []Demand) (variants, products []Demand) {
	for _, d := range demands {
		switch d.Target.(type) {
		case VariantTarget:
			variants = append(variants, d)
		case ProductTarget:
			products = append(products, d)
		}
	}
	return variants, products
}
