// Package notify fans order lifecycle events out to interested parties
// after the owning transaction has committed.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FindMalek/dukkani-sub000/internal/models"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderDeleted       EventType = "order.deleted"
)

// OrderEvent is the payload published for every event.
type OrderEvent struct {
	Event         EventType            `json:"event"`
	OrderID       string               `json:"orderId"`
	StoreID       string               `json:"storeId"`
	Status        models.OrderStatus   `json:"status,omitempty"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod,omitempty"`
	IsWhatsApp    bool                 `json:"isWhatsApp"`
	ItemCount     int                  `json:"itemCount"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewOrderEvent builds the payload for order.
func NewOrderEvent(event EventType, order *models.Order) *OrderEvent {
	qty := 0
	for _, it := range order.Items {
		qty += it.Quantity
	}
	return &OrderEvent{
		Event:         event,
		OrderID:       order.ID,
		StoreID:       order.StoreID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		IsWhatsApp:    order.IsWhatsApp,
		ItemCount:     qty,
		Subtotal:      order.Subtotal(),
		Timestamp:     time.Now().UTC(),
	}
}

// OrderNotifier is what the order service calls after a commit. Errors are
// reported to the caller for logging only.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
	OrderStatusChanged(ctx context.Context, order *models.Order) error
	OrderDeleted(ctx context.Context, storeID, orderID string) error
}

// Multi delivers each event to every notifier and joins their errors.
type Multi []OrderNotifier

func (m Multi) OrderCreated(ctx context.Context, order *models.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderCreated(ctx, order))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderStatusChanged(ctx context.Context, order *models.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderStatusChanged(ctx, order))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderDeleted(ctx context.Context, storeID, orderID string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderDeleted(ctx, storeID, orderID))
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) OrderCreated(context.Context, *models.Order) error       { return nil }
func (Nop) OrderStatusChanged(context.Context, *models.Order) error { return nil }
func (Nop) OrderDeleted(context.Context, string, string) error      { return nil }
