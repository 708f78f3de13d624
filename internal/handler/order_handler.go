package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FindMalek/dukkani-sub000/internal/middleware"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/service"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

const idempotencyHeader = "Idempotency-Key"

// OrderService is implemented by *service.OrderService.
type OrderService interface {
	CreateOrder(ctx context.Context, userID, storeID string, req *service.CreateOrderRequest) (*models.Order, error)
	CreateOrderPublic(ctx context.Context, storeRef, idempotencyKey string, req *service.PublicOrderRequest) (*models.PublicOrder, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, userID, orderID string, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID string) error
}

// OrderHandler handles order endpoints for the dashboard and the storefront.
type OrderHandler struct {
	orderService OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// CreateOrder handles POST /v1/stores/:storeId/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.UserID(c), c.Param("storeId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Order created", order)
}

// CreatePublicOrder handles POST /v1/public/stores/:store/orders
func (h *OrderHandler) CreatePublicOrder(c *gin.Context) {
	var req service.PublicOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if len(key) > 128 {
		utils.Error(c, 400, "INVALID_REQUEST", "Idempotency-Key is too long")
		return
	}

	order, err := h.orderService.CreateOrderPublic(c.Request.Context(), c.Param("store"), key, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Order placed", order)
}

// GetOrder handles GET /v1/orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.UserID(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Order retrieved", order)
}

// UpdateStatus handles PATCH /v1/orders/:orderId/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Order status updated", order)
}

// DeleteOrder handles DELETE /v1/orders/:orderId
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.orderService.DeleteOrder(c.Request.Context(), middleware.UserID(c), orderID); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Order deleted", gin.H{"id": orderID})
}
