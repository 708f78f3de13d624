package sse

import (
	"context"
	"time"

	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/notify"
)

// HubNotifier implements notify.OrderNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) OrderCreated(_ context.Context, order *models.Order) error {
	if n.hub.ClientCount() == 0 {
		return nil
	}
	n.hub.Broadcast(notify.NewOrderEvent(notify.EventOrderCreated, order))
	return nil
}

func (n *HubNotifier) OrderStatusChanged(_ context.Context, order *models.Order) error {
	if n.hub.ClientCount() == 0 {
		return nil
	}
	n.hub.Broadcast(notify.NewOrderEvent(notify.EventOrderStatusChanged, order))
	return nil
}

func (n *HubNotifier) OrderDeleted(_ context.Context, storeID, orderID string) error {
	if n.hub.ClientCount() == 0 {
		return nil
	}
	n.hub.Broadcast(&notify.OrderEvent{
		Event:     notify.EventOrderDeleted,
		OrderID:   orderID,
		StoreID:   storeID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
