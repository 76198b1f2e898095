package cart

import "errors"

var (
	// -- Authentication/Authorization --
	ErrUserNotAuthenticated = errors.New("user not authenticated")

	// -- Validation & Input --
	ErrInvalidQuantity     = errors.New("invalid cart quantity")
	ErrColorRequired       = errors.New("color is required for this product")
	ErrInvalidColor        = errors.New("color is not available for this product")
	ErrInvalidSize         = errors.New("size is not available for this product")
	ErrProductNotOrderable = errors.New("product has no color variants")
	ErrInsufficientStock   = errors.New("insufficient stock")

	// -- Resource State --
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartItemAlreadyExist = errors.New("cart item already exists")
	ErrCartEmpty            = errors.New("cart is already empty")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
