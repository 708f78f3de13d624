package stock

import (
	"context"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// Checker verifies that requested quantities are available. It must run on
// the same transaction as the Ledger decrement that follows it: the rows it
// reads stay locked until that transaction ends.
type Checker struct {
	repo Repository
}

// NewChecker constructs a Checker.
func NewChecker(repo Repository) *Checker {
	return &Checker{repo: repo}
}

// Check returns nil when every line can be served from storeID's stock.
// Otherwise it returns a *utils.StockError, or an error wrapping
// utils.ErrNotFound or utils.ErrBadRequest naming the offending item.
func (c *Checker) Check(ctx context.Context, q database.Queryer, storeID string, lines []Line) error {
	demands, err := Aggregate(lines)
	if err != nil {
		return err
	}
	variantDemands, productDemands := split(demands)

	if err := c.checkVariants(ctx, q, storeID, variantDemands); err != nil {
		return err
	}
	return c.checkProducts(ctx, q, storeID, productDemands)
}

func (c *Checker) checkVariants(ctx context.Context, q database.Queryer, storeID string, demands []Demand) error {
	if len(demands) == 0 {
		return nil
	}

	ids := make([]string, 0, len(demands))
	for _, d := range demands {
		ids = append(ids, d.Target.(VariantTarget).VariantID)
	}

	variants, err := c.repo.LockVariants(ctx, q, storeID, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]models.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	for _, d := range demands {
		t := d.Target.(VariantTarget)
		v, ok := byID[t.VariantID]
		if !ok {
			return utils.NotFoundf("variant %s not found", t.VariantID)
		}
		if v.ProductID != t.ProductID {
			return utils.BadRequestf("variant %s does not belong to product %s", t.VariantID, t.ProductID)
		}
		if v.Stock < d.Quantity {
			return &utils.StockError{
				ProductID: t.ProductID,
				VariantID: t.VariantID,
				Requested: d.Quantity,
				Available: v.Stock,
			}
		}
	}
	return nil
}

func (c *Checker) checkProducts(ctx context.Context, q database.Queryer, storeID string, demands []Demand) error {
	if len(demands) == 0 {
		return nil
	}

	ids := make([]string, 0, len(demands))
	for _, d := range demands {
		ids = append(ids, d.Target.Product())
	}

	products, err := c.repo.LockProducts(ctx, q, storeID, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, d := range demands {
		id := d.Target.Product()
		p, ok := byID[id]
		if !ok {
			return utils.NotFoundf("product %s not found", id)
		}
		if p.HasVariants {
			return utils.BadRequestf("product %s has variants; a variant must be selected", id)
		}
		if p.Stock < d.Quantity {
			return &utils.StockError{
				ProductID: id,
				Requested: d.Quantity,
				Available: p.Stock,
			}
		}
	}
	return nil
}
