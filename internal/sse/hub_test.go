package sse

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/notify"
)

func TestHub_BroadcastScopedToStore(t *testing.T) {
	hub := NewHub()
	mine := hub.Register("c1", "store-a")
	other := hub.Register("c2", "store-b")
	defer hub.Unregister("c1")
	defer hub.Unregister("c2")

	n := NewHubNotifier(hub)
	require.NoError(t, n.OrderCreated(context.Background(), &models.Order{ID: "o1", StoreID: "store-a"}))

	select {
	case data := <-mine.Events:
		var ev notify.OrderEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, notify.EventOrderCreated, ev.Event)
		assert.Equal(t, "o1", ev.OrderID)
	default:
		t.Fatal("expected an event for store-a")
	}
	assert.Len(t, other.Events, 0)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	c := hub.Register("c1", "store-a")
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister("c1")
	assert.Equal(t, 0, hub.ClientCount())
	_, open := <-c.Events
	assert.False(t, open)

	hub.Unregister("c1")
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := hub.Register("c1", "s")
	defer hub.Unregister("c1")

	for i := 0; i < cap(c.Events)+5; i++ {
		hub.Broadcast(&notify.OrderEvent{Event: notify.EventOrderDeleted, StoreID: "s"})
	}
	assert.Len(t, c.Events, cap(c.Events))
}
