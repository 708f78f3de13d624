package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreStatus enumerates the lifecycle states of a storefront.
type StoreStatus string

const (
	StoreStatusDraft     StoreStatus = "DRAFT"
	StoreStatusPublished StoreStatus = "PUBLISHED"
	StoreStatusArchived  StoreStatus = "ARCHIVED"
)

// PaymentMethod enumerates the payment methods a store can accept.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// Store is the merchant storefront that scopes products, customers and orders.
// SupportedPaymentMethods is scanned through pq.Array by the repository.
type Store struct {
	ID                      string          `db:"id" json:"id"`
	Slug                    string          `db:"slug" json:"slug"`
	Name                    string          `db:"name" json:"name"`
	OwnerID                 string          `db:"owner_id" json:"-"`
	Status                  StoreStatus     `db:"status" json:"status"`
	SupportedPaymentMethods []PaymentMethod `db:"-" json:"supportedPaymentMethods"`
	ShippingCost            decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	CreatedAt               time.Time       `db:"created_at" json:"-"`
	UpdatedAt               time.Time       `db:"updated_at" json:"-"`
}

// IsPubliclyOrderable reports whether guests may place orders on the store.
func (s *Store) IsPubliclyOrderable() bool {
	return s.Status == StoreStatusPublished
}

// SupportsPaymentMethod reports whether the store accepts m.
func (s *Store) SupportsPaymentMethod(m PaymentMethod) bool {
	for _, pm := range s.SupportedPaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// IsOwnedBy reports whether userID owns the store.
func (s *Store) IsOwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}
