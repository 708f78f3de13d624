package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
)

// StoreSource loads a store from the database.
type StoreSource interface {
	GetBySlugOrID(ctx context.Context, q database.Queryer, ref string) (*models.Store, error)
}

// cachedStore mirrors models.Store including the fields its JSON form hides.
type cachedStore struct {
	ID                      string                 `json:"id"`
	Slug                    string                 `json:"slug"`
	Name                    string                 `json:"name"`
	OwnerID                 string                 `json:"ownerId"`
	Status                  models.StoreStatus     `json:"status"`
	SupportedPaymentMethods []models.PaymentMethod `json:"supportedPaymentMethods"`
	ShippingCost            decimal.Decimal        `json:"shippingCost"`
	CreatedAt               time.Time              `json:"createdAt"`
	UpdatedAt               time.Time              `json:"updatedAt"`
}

// StoreCache is a read-through cache for storefront lookups on the public
// order path. Entries expire after the TTL; a store that was unpublished may
// keep accepting guest orders until then.
type StoreCache struct {
	kv     KV
	source StoreSource
	ttl    time.Duration
}

// NewStoreCache creates a new StoreCache.
func NewStoreCache(kv KV, source StoreSource, ttl time.Duration) *StoreCache {
	return &StoreCache{kv: kv, source: source, ttl: ttl}
}

func (c *StoreCache) key(ref string) string {
	return fmt.Sprintf("store:ref:%s", ref)
}

// GetBySlugOrID returns the store from cache, falling back to the database.
// Cache failures are logged and never fail the lookup.
func (c *StoreCache) GetBySlugOrID(ctx context.Context, ref string) (*models.Store, error) {
	key := c.key(ref)

	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var cs cachedStore
		if err := json.Unmarshal([]byte(raw), &cs); err == nil {
			return cs.toModel(), nil
		}
		log.Warn().Str("key", key).Msg("Discarding corrupt store cache entry")
	case !IsMiss(err):
		log.Warn().Err(err).Str("key", key).Msg("Store cache read failed")
	}

	store, err := c.source.GetBySlugOrID(ctx, nil, ref)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fromModel(store))
	if err != nil {
		return store, nil
	}
	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Store cache write failed")
	}
	return store, nil
}

func fromModel(s *models.Store) *cachedStore {
	return &cachedStore{
		ID:                      s.ID,
		Slug:                    s.Slug,
		Name:                    s.Name,
		OwnerID:                 s.OwnerID,
		Status:                  s.Status,
		SupportedPaymentMethods: s.SupportedPaymentMethods,
		ShippingCost:            s.ShippingCost,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

func (cs *cachedStore) toModel() *models.Store {
	return &models.Store{
		ID:                      cs.ID,
		Slug:                    cs.Slug,
		Name:                    cs.Name,
		OwnerID:                 cs.OwnerID,
		Status:                  cs.Status,
		SupportedPaymentMethods: cs.SupportedPaymentMethods,
		ShippingCost:            cs.ShippingCost,
		CreatedAt:               cs.CreatedAt,
		UpdatedAt:               cs.UpdatedAt,
	}
}
