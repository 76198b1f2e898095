package product

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrColorNotFound     = errors.New("color not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNegativePrice  = errors.New("price cannot be negative")
	ErrNegativeStock  = errors.New("stock cannot be negative")
	ErrEmptyColorName = errors.New("color name cannot be empty")
	ErrDuplicateColor = errors.New("duplicate color name")
)

// ShortageError reports a bounded decrement refused by the store.
type ShortageError struct {
	ProductID string
	Color     string
	Available int
	Requested int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s color %q: available %d, requested %d",
		e.ProductID, e.Color, e.Available, e.Requested)
}

func (e *ShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}
