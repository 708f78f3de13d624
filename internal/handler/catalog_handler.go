package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/FindMalek/dukkani-sub000/internal/middleware"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/service"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// CatalogService is implemented by *service.CatalogService.
type CatalogService interface {
	CreateOption(ctx context.Context, userID, productID string, req *service.CreateOptionRequest) (*models.VariantOption, error)
	CreateVariant(ctx context.Context, userID, productID string, req *service.CreateVariantRequest) (*models.Variant, error)
}

// CatalogHandler handles variant management endpoints.
type CatalogHandler struct {
	catalogService CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalogService CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateOption handles POST /v1/products/:productId/options
func (h *CatalogHandler) CreateOption(c *gin.Context) {
	var req service.CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	opt, err := h.catalogService.CreateOption(c.Request.Context(), middleware.UserID(c), c.Param("productId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Option created", opt)
}

// CreateVariant handles POST /v1/products/:productId/variants
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	var req service.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	v, err := h.catalogService.CreateVariant(c.Request.Context(), middleware.UserID(c), c.Param("productId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Variant created", v)
}
