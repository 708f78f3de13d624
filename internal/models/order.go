package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a placed order. ID is derived from the store slug, not a UUID.
// Items, Customer and Address are hydrated by the service layer.
type Order struct {
	ID            string        `db:"id" json:"id"`
	StoreID       string        `db:"store_id" json:"storeId"`
	CustomerID    string        `db:"customer_id" json:"customerId"`
	AddressID     *string       `db:"address_id" json:"addressId,omitempty"`
	Status        OrderStatus   `db:"status" json:"status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`
	IsWhatsApp    bool          `db:"is_whatsapp" json:"isWhatsApp"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`

	Items    []OrderItem `db:"-" json:"items"`
	Customer *Customer   `db:"-" json:"customer,omitempty"`
	Address  *Address    `db:"-" json:"address,omitempty"`
}

// Subtotal sums price snapshot times quantity over the items.
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// OrderItem is an immutable line of an order. Price is the unit price
// captured when the order was placed.
type OrderItem struct {
	ID        string          `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"orderId"`
	ProductID string          `db:"product_id" json:"productId"`
	VariantID *string         `db:"variant_id" json:"variantId,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PublicOrder is the storefront-facing view of an order. It
// carries no customer record.
type PublicOrder struct {
	ID            string          `json:"id"`
	StoreSlug     string          `json:"storeSlug"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	IsWhatsApp    bool            `json:"isWhatsApp"`
	Notes         *string         `json:"notes,omitempty"`
	Items         []OrderItem     `json:"items"`
	Address       *Address        `json:"address,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewPublicOrder builds the storefront view of order placed on store.
func NewPublicOrder(store *Store, order *Order) *PublicOrder {
	subtotal := order.Subtotal()
	return &PublicOrder{
		ID:            order.ID,
		StoreSlug:     store.Slug,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		IsWhatsApp:    order.IsWhatsApp,
		Notes:         order.Notes,
		Items:         order.Items,
		Address:       order.Address,
		Subtotal:      subtotal,
		ShippingCost:  store.ShippingCost,
		Total:         subtotal.Add(store.ShippingCost),
		CreatedAt:     order.CreatedAt,
	}
}
