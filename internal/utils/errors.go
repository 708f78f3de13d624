package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy of the order engine. Services wrap these with
// fmt.Errorf("%w: ...") and handlers match them with errors.Is.
var (
	ErrNotFound          = errors.New("NOT_FOUND")
	ErrForbidden         = errors.New("FORBIDDEN")
	ErrBadRequest        = errors.New("BAD_REQUEST")
	ErrInsufficientStock = errors.New("INSUFFICIENT_STOCK")
	ErrConflict          = errors.New("CONFLICT")
	ErrUnauthorized      = errors.New("UNAUTHORIZED")
)

// StockError reports a product or variant that cannot cover the requested
// quantity. It matches ErrInsufficientStock.
type StockError struct {
	ProductID string
	VariantID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("%s: variant %s of product %s has %d left, %d requested",
			ErrInsufficientStock, e.VariantID, e.ProductID, e.Available, e.Requested)
	}
	return fmt.Sprintf("%s: product %s has %d left, %d requested",
		ErrInsufficientStock, e.ProductID, e.Available, e.Requested)
}

// Unwrap lets errors.Is(err, ErrInsufficientStock) succeed.
func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// NotFoundf wraps ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// BadRequestf wraps ErrBadRequest with a formatted detail.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// Forbiddenf wraps ErrForbidden with a formatted detail.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
