package inventory

import (
	"errors"
	"fmt"
)

var ErrLedgerClosed = errors.New("ledger already compensated")

type StockReason string

const (
	ReasonProductNotFound StockReason = "product_not_found"
	ReasonNoVariants      StockReason = "no_color_variants"
	ReasonColorRequired   StockReason = "color_required"
	ReasonColorNotFound   StockReason = "color_not_found"
	ReasonInsufficient    StockReason = "insufficient_stock"
)

// StockError is a client-correctable problem with a requested line item.
type StockError struct {
	Reason      StockReason
	ProductID   string
	ProductName string
	Color       string
	Available   int
	Requested   int
}

func (e *StockError) Error() string {
	switch e.Reason {
	case ReasonProductNotFound:
		return fmt.Sprintf("Product not found: %s", e.ProductID)
	case ReasonNoVariants:
		return fmt.Sprintf("Product %q has no color variants configured", e.ProductName)
	case ReasonColorRequired:
		return fmt.Sprintf("Color is required for product %q", e.ProductName)
	case ReasonColorNotFound:
		return fmt.Sprintf("Color %q not found for product %q", e.Color, e.ProductName)
	case ReasonInsufficient:
		return fmt.Sprintf("Insufficient stock for %q in color %q. Available: %d, requested: %d",
			e.ProductName, e.Color, e.Available, e.Requested)
	default:
		return fmt.Sprintf("stock error for product %s", e.ProductID)
	}
}
