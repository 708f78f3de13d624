package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/sse"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// StoreReader loads a store for the ownership check.
type StoreReader interface {
	GetByID(ctx context.Context, q database.Queryer, id string) (*models.Store, error)
}

// SSEHandler handles Server-Sent Events for live dashboard order updates.
type SSEHandler struct {
	hub    *sse.Hub
	stores StoreReader
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub, stores StoreReader) *SSEHandler {
	return &SSEHandler{hub: hub, stores: stores}
}

// Stream handles GET /v1/stores/:storeId/orders/stream?token=<jwt>
// EventSource API cannot set custom headers, so JWT is passed via query param.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
		return
	}

	claims, err := utils.ValidateJWT(token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	storeID := c.Param("storeId")
	store, err := h.stores.GetByID(c.Request.Context(), nil, storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !store.IsOwnedBy(claims.UserID) {
		utils.Error(c, 403, "FORBIDDEN", "Store is not yours")
		return
	}

	clientID := fmt.Sprintf("store-%s-%d", store.ID, time.Now().UnixNano())

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, store.ID)
	defer h.hub.Unregister(clientID)

	// Send initial connected event
	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"storeId":   store.ID,
		"message":   "SSE connection established",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Str("user_id", claims.UserID).Msg("Order SSE stream started")

	// Stream events
	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent("order", string(data))
			return true
		case <-time.After(30 * time.Second):
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
