package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var stockErr *utils.StockError
	switch {
	case errors.As(err, &stockErr):
		utils.ErrorWithDetails(c, 409, "INSUFFICIENT_STOCK", err.Error(), gin.H{
			"productId": stockErr.ProductID,
			"variantId": stockErr.VariantID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, utils.ErrInsufficientStock):
		utils.Error(c, 409, "INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, utils.ErrForbidden):
		utils.Error(c, 403, "FORBIDDEN", err.Error())
	case errors.Is(err, utils.ErrBadRequest):
		utils.Error(c, 400, "BAD_REQUEST", err.Error())
	case errors.Is(err, utils.ErrConflict):
		utils.Error(c, 409, "CONFLICT", err.Error())
	case errors.Is(err, utils.ErrUnauthorized):
		utils.Error(c, 401, "UNAUTHORIZED", err.Error())
	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.FullPath()).Msg("Unhandled error")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
