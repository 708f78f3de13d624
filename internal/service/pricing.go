package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/stock"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// PricedLine is a line with the unit price charged for it.
type PricedLine struct {
	stock.Line
	Price decimal.Decimal
}

// PriceResolver looks up current catalog prices.
type PriceResolver struct {
	products ProductRepository
}

// NewPriceResolver constructs a PriceResolver.
func NewPriceResolver(products ProductRepository) *PriceResolver {
	return &PriceResolver{products: products}
}

// Resolve prices lines from the store's catalog, keeping their order. A
// variant price overrides the product price. With publishedOnly, unpublished
// products are treated as missing.
func (p *PriceResolver) Resolve(ctx context.Context, q database.Queryer, storeID string, lines []stock.Line, publishedOnly bool) ([]PricedLine, error) {
	productIDs := make([]string, 0, len(lines))
	var variantIDs []string
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
		if l.VariantID != "" {
			variantIDs = append(variantIDs, l.VariantID)
		}
	}

	products, err := p.products.ListProducts(ctx, q, storeID, uniq(productIDs))
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string]models.Product, len(products))
	for _, pr := range products {
		byProduct[pr.ID] = pr
	}

	byVariant := map[string]models.Variant{}
	if len(variantIDs) > 0 {
		variants, err := p.products.ListVariants(ctx, q, storeID, uniq(variantIDs))
		if err != nil {
			return nil, err
		}
		for _, v := range variants {
			byVariant[v.ID] = v
		}
	}

	out := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		pr, ok := byProduct[l.ProductID]
		if !ok || (publishedOnly && !pr.Published) {
			return nil, utils.NotFoundf("product %s not found", l.ProductID)
		}
		price := pr.Price
		if l.VariantID != "" {
			v, ok := byVariant[l.VariantID]
			if !ok {
				return nil, utils.NotFoundf("variant %s not found", l.VariantID)
			}
			if v.ProductID != pr.ID {
				return nil, utils.BadRequestf("variant %s does not belong to product %s", l.VariantID, pr.ID)
			}
			price = v.EffectivePrice(pr.Price)
		}
		out = append(out, PricedLine{Line: l, Price: price})
	}
	return out, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
