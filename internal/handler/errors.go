package handler

import (
	"errors"
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/inventory"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var badRequestErrors = []error{
	product.ErrEmptyName,
	product.ErrNegativePrice,
	product.ErrNegativeStock,
	product.ErrEmptyColorName,
	product.ErrDuplicateColor,
	cart.ErrInvalidQuantity,
	cart.ErrColorRequired,
	cart.ErrInvalidColor,
	cart.ErrInvalidSize,
	cart.ErrProductNotOrderable,
	cart.ErrInsufficientStock,
	cart.ErrCartItemAlreadyExist,
}

var notFoundErrors = []error{
	order.ErrOrderNotFound,
	product.ErrProductNotFound,
	cart.ErrCartItemNotFound,
}

// statusFor maps a domain error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var validationErr *order.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	var stockErr *inventory.StockError
	if errors.As(err, &stockErr) {
		return http.StatusBadRequest, stockErr.Error()
	}

	if errors.Is(err, order.ErrDuplicateOrderNumber) {
		return http.StatusConflict, "Order number already exists, please retry"
	}
	if errors.Is(err, order.ErrForbidden) {
		return http.StatusForbidden, "forbidden"
	}
	if errors.Is(err, cart.ErrUserNotAuthenticated) {
		return http.StatusUnauthorized, "authentication required"
	}

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	var persistErr *order.PersistenceError
	if errors.As(err, &persistErr) && persistErr.Unavailable {
		return http.StatusServiceUnavailable, "Service temporarily unavailable, please try again"
	}

	return http.StatusInternalServerError, "Internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	utils.WriteJSONError(w, msg, code)
}
