package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/stock"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// CreateOptionRequest defines a new variant option with its values.
type CreateOptionRequest struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// CreateVariantRequest defines a variant as one value per product option.
type CreateVariantRequest struct {
	SKU        *string                   `json:"sku"`
	Price      *decimal.Decimal          `json:"price"`
	Stock      int                       `json:"stock"`
	Selections []models.VariantSelection `json:"selections"`
}

// CatalogService maintains the variant model of products.
type CatalogService struct {
	tx       TxRunner
	stores   StoreRepository
	products ProductRepository
	variants VariantRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(tx TxRunner, stores StoreRepository, products ProductRepository, variants VariantRepository) *CatalogService {
	return &CatalogService{tx: tx, stores: stores, products: products, variants: variants}
}

func (s *CatalogService) ownedProduct(ctx context.Context, userID, productID string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.GetByID(ctx, nil, product.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.IsOwnedBy(userID) {
		return nil, utils.Forbiddenf("product %s belongs to another store", productID)
	}
	return product, nil
}

// CreateOption adds an option such as "Size" with its values to a product.
// Option names and values are unique per product, ignoring case.
func (s *CatalogService) CreateOption(ctx context.Context, userID, productID string, req *CreateOptionRequest) (*models.VariantOption, error) {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.BadRequestf("option name is required")
	}
	if len(req.Values) == 0 {
		return nil, utils.BadRequestf("option %q needs at least one value", name)
	}

	opt := &models.VariantOption{
		ID:        utils.NewID(),
		ProductID: product.ID,
		Name:      name,
	}
	seen := make(map[string]struct{}, len(req.Values))
	for _, raw := range req.Values {
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil, utils.BadRequestf("option values cannot be blank")
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			return nil, utils.BadRequestf("duplicate value %q for option %q", v, name)
		}
		seen[k] = struct{}{}
		opt.Values = append(opt.Values, models.VariantOptionValue{ID: utils.NewID(), OptionID: opt.ID, Value: v})
	}

	err = s.tx.WithTx(ctx, func(tx database.Queryer) error {
		existing, err := s.variants.GetOptions(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		for _, o := range existing {
			if strings.EqualFold(o.Name, name) {
				return utils.BadRequestf("product already has an option named %q", o.Name)
			}
		}
		return s.variants.CreateOption(ctx, tx, opt)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", product.ID).Str("option", name).Int("values", len(opt.Values)).Msg("Variant option created")
	return opt, nil
}

// CreateVariant adds a sellable combination of option values to a product
// and switches the product to variant-based ordering.
func (s *CatalogService) CreateVariant(ctx context.Context, userID, productID string, req *CreateVariantRequest) (*models.Variant, error) {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if req.Stock < 0 || req.Stock > stock.MaxQuantity {
		return nil, utils.BadRequestf("stock must be between 0 and %d", stock.MaxQuantity)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, utils.BadRequestf("price cannot be negative")
	}
	if len(req.Selections) == 0 {
		return nil, utils.BadRequestf("a variant needs at least one selection")
	}

	v := &models.Variant{
		ID:         utils.NewID(),
		ProductID:  product.ID,
		Stock:      req.Stock,
		Selections: req.Selections,
	}
	if req.SKU != nil {
		if sku := strings.TrimSpace(*req.SKU); sku != "" {
			v.SKU = &sku
		}
	}
	if req.Price != nil {
		v.Price = decimal.NewNullDecimal(*req.Price)
	}

	err = s.tx.WithTx(ctx, func(tx database.Queryer) error {
		options, err := s.variants.GetOptions(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if err := validateSelections(options, req.Selections); err != nil {
			return err
		}
		v.SelectionKey = models.SelectionKey(req.Selections)

		if err := s.variants.CreateVariant(ctx, tx, v); err != nil {
			return err
		}
		if !product.HasVariants {
			return s.products.SetHasVariants(ctx, tx, product.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", product.ID).Str("variant_id", v.ID).Str("selection", v.SelectionKey).Msg("Variant created")
	return v, nil
}

// validateSelections requires exactly one value for every option of the
// product, each value belonging to its option.
func validateSelections(options []models.VariantOption, selections []models.VariantSelection) error {
	valueOption := make(map[string]string)
	for _, o := range options {
		for _, v := range o.Values {
			valueOption[v.ID] = o.ID
		}
	}

	picked := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		optionID, ok := valueOption[sel.ValueID]
		if !ok || optionID != sel.OptionID {
			return utils.BadRequestf("value %s is not a value of option %s on this product", sel.ValueID, sel.OptionID)
		}
		if _, dup := picked[sel.OptionID]; dup {
			return utils.BadRequestf("option %s selected more than once", sel.OptionID)
		}
		picked[sel.OptionID] = struct{}{}
	}
	if len(picked) != len(options) {
		return utils.BadRequestf("a variant must select one value for each of the %d options", len(options))
	}
	return nil
}
