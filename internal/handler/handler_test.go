package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FindMalek/dukkani-sub000/internal/middleware"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/service"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")
}

type stubOrderService struct {
	err error

	gotUser, gotStore, gotKey string
	gotPublic                 *service.PublicOrderRequest
	gotStatus                 models.OrderStatus
}

func (s *stubOrderService) CreateOrder(_ context.Context, userID, storeID string, _ *service.CreateOrderRequest) (*models.Order, error) {
	s.gotUser, s.gotStore = userID, storeID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: "bella-ABCDEFGH", StoreID: storeID, Status: models.OrderStatusPending}, nil
}

func (s *stubOrderService) CreateOrderPublic(_ context.Context, storeRef, key string, req *service.PublicOrderRequest) (*models.PublicOrder, error) {
	s.gotStore, s.gotKey, s.gotPublic = storeRef, key, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.PublicOrder{ID: "bella-ABCDEFGH", StoreSlug: storeRef, Status: models.OrderStatusPending}, nil
}

func (s *stubOrderService) GetOrder(_ context.Context, userID, orderID string) (*models.Order, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: orderID}, nil
}

func (s *stubOrderService) UpdateOrderStatus(_ context.Context, userID, orderID string, status models.OrderStatus) (*models.Order, error) {
	s.gotUser, s.gotStatus = userID, status
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: orderID, Status: status}, nil
}

func (s *stubOrderService) DeleteOrder(_ context.Context, userID, _ string) error {
	s.gotUser = userID
	return s.err
}

func newRouter(svc OrderService) *gin.Engine {
	h := NewOrderHandler(svc)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.POST("/v1/public/stores/:store/orders", h.CreatePublicOrder)
	authed := r.Group("/v1", middleware.NewJWTMiddleware().Handle())
	authed.POST("/stores/:storeId/orders", h.CreateOrder)
	authed.GET("/orders/:orderId", h.GetOrder)
	authed.PATCH("/orders/:orderId/status", h.UpdateStatus)
	authed.DELETE("/orders/:orderId", h.DeleteOrder)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, utils.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func bearer(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

const publicBody = `{"customerName":"Yasmine","phone":"20333444","address":{"street":"12 Rue de Rome","city":"Tunis"},
	"paymentMethod":"COD","items":[{"productId":"mug","quantity":1}]}`

func TestCreatePublicOrder(t *testing.T) {
	svc := &stubOrderService{}
	w, resp := do(t, newRouter(svc), http.MethodPost, "/v1/public/stores/bella/orders", publicBody,
		map[string]string{"Idempotency-Key": " abc-123 "})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Meta.RequestID)
	assert.Equal(t, "bella", svc.gotStore)
	assert.Equal(t, "abc-123", svc.gotKey)
	require.NotNil(t, svc.gotPublic)
	assert.Equal(t, "mug", svc.gotPublic.Items[0].ProductID)
}

func TestCreatePublicOrder_InvalidBody(t *testing.T) {
	w, resp := do(t, newRouter(&stubOrderService{}), http.MethodPost, "/v1/public/stores/bella/orders", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not found", utils.NotFoundf("store x not found"), 404, "NOT_FOUND"},
		{"forbidden", utils.Forbiddenf("nope"), 403, "FORBIDDEN"},
		{"bad request", utils.BadRequestf("bad phone"), 400, "BAD_REQUEST"},
		{"conflict", fmt.Errorf("%w: in progress", utils.ErrConflict), 409, "CONFLICT"},
		{"stock constraint", fmt.Errorf("decrement product p: %w", utils.ErrInsufficientStock), 409, "INSUFFICIENT_STOCK"},
		{"unknown", errors.New("connection reset"), 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, newRouter(&stubOrderService{err: tt.err}), http.MethodPost, "/v1/public/stores/bella/orders", publicBody, nil)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestErrorMapping_StockDetails(t *testing.T) {
	svc := &stubOrderService{err: &utils.StockError{ProductID: "mug", Requested: 3, Available: 1}}
	w, resp := do(t, newRouter(svc), http.MethodPost, "/v1/public/stores/bella/orders", publicBody, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mug", details["productId"])
	assert.EqualValues(t, 1, details["available"])
	assert.EqualValues(t, 3, details["requested"])
}

func TestDashboardRoutes(t *testing.T) {
	svc := &stubOrderService{}
	r := newRouter(svc)
	auth := bearer(t, "owner-1")

	w, _ := do(t, r, http.MethodPost, "/v1/stores/s1/orders", `{"customerId":"c1","paymentMethod":"COD","items":[]}`, auth)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "owner-1", svc.gotUser)
	assert.Equal(t, "s1", svc.gotStore)

	w, resp := do(t, r, http.MethodPatch, "/v1/orders/o1/status", `{"status":"SHIPPED"}`, auth)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusShipped, svc.gotStatus)
	assert.True(t, resp.Success)

	w, _ = do(t, r, http.MethodPatch, "/v1/orders/o1/status", `{}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/v1/orders/o1", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/v1/orders/o1", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/v1/orders/o1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	r := gin.New()
	r.GET("/healthy", NewHealthHandler(map[string]Check{"database": ok, "redis": ok}).GetHealth)
	r.GET("/degraded", NewHealthHandler(map[string]Check{"database": ok, "redis": down}).GetHealth)

	w, resp := do(t, r, http.MethodGet, "/healthy", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = do(t, r, http.MethodGet, "/degraded", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}
