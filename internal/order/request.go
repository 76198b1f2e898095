package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var totalTolerance = decimal.RequireFromString("0.01")

// CreateOrderRequest is the order-creation payload. Pointer fields let
// Validate tell a missing value from a zero one.
type CreateOrderRequest struct {
	CustomerID      *string          `json:"customerId"`
	CustomerName    *string          `json:"customerName"`
	CustomerEmail   *string          `json:"customerEmail"`
	Items           []ItemRequest    `json:"items"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
	Subtotal        *float64         `json:"subtotal"`
	Tax             *float64         `json:"tax"`
	TotalAmount     *float64         `json:"totalAmount"`
	Status          *Status          `json:"status"`
	PaymentStatus   *PaymentStatus   `json:"paymentStatus"`
	OrderDate       *time.Time       `json:"orderDate"`
	Notes           string           `json:"notes"`
}

type ItemRequest struct {
	ProductID   *string  `json:"productId"`
	ProductName *string  `json:"productName"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
	Total       *float64 `json:"total"`
	Color       string   `json:"color"`
}

// DecodeCreateOrderRequest reads a JSON body. Type mismatches such as a
// string price are reported as validation errors.
func DecodeCreateOrderRequest(r io.Reader) (*CreateOrderRequest, error) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, newValidationError(fmt.Sprintf("Invalid value for %s: expected %s", typeErr.Field, typeErr.Type))
		}
		var timeErr *time.ParseError
		if errors.As(err, &timeErr) {
			return nil, newValidationError("Invalid orderDate: expected RFC 3339 timestamp")
		}
		return nil, newValidationError("Invalid request body")
	}
	return &req, nil
}

func missingString(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Validate performs every request check that needs no store access.
func (r *CreateOrderRequest) Validate() error {
	var missing []string
	if missingString(r.CustomerID) {
		missing = append(missing, "customerId")
	}
	if missingString(r.CustomerName) {
		missing = append(missing, "customerName")
	}
	if missingString(r.CustomerEmail) {
		missing = append(missing, "customerEmail")
	}
	if r.Items == nil {
		missing = append(missing, "items")
	}
	if r.ShippingAddress == nil {
		missing = append(missing, "shippingAddress")
	}
	if r.Subtotal == nil {
		missing = append(missing, "subtotal")
	}
	if r.Tax == nil {
		missing = append(missing, "tax")
	}
	if r.TotalAmount == nil {
		missing = append(missing, "totalAmount")
	}
	if len(missing) > 0 {
		return newValidationError("Missing required fields: " + strings.Join(missing, ", "))
	}

	if len(r.Items) == 0 {
		return newValidationError("Order must contain at least one item")
	}

	for i, item := range r.Items {
		if err := item.validate(i); err != nil {
			return err
		}
	}

	if r.Status != nil && !r.Status.Valid() {
		return newValidationError(fmt.Sprintf("Invalid status: %s", *r.Status))
	}
	if r.PaymentStatus != nil && !r.PaymentStatus.Valid() {
		return newValidationError(fmt.Sprintf("Invalid paymentStatus: %s", *r.PaymentStatus))
	}

	if *r.Subtotal < 0 || *r.Tax < 0 || *r.TotalAmount < 0 {
		return newValidationError("Amounts must not be negative")
	}

	expected := decimal.NewFromFloat(*r.Subtotal).Add(decimal.NewFromFloat(*r.Tax))
	actual := decimal.NewFromFloat(*r.TotalAmount)
	if expected.Sub(actual).Abs().GreaterThan(totalTolerance) {
		return newValidationError(fmt.Sprintf(
			"Total amount mismatch: subtotal + tax = %s, totalAmount = %s",
			expected.StringFixed(2), actual.StringFixed(2),
		))
	}

	return nil
}

func (it ItemRequest) validate(index int) error {
	var missing []string
	if missingString(it.ProductID) {
		missing = append(missing, "productId")
	}
	if missingString(it.ProductName) {
		missing = append(missing, "productName")
	}
	if it.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if it.Price == nil {
		missing = append(missing, "price")
	}
	if it.Total == nil {
		missing = append(missing, "total")
	}
	if len(missing) > 0 {
		return newValidationError(fmt.Sprintf("Item %d is missing required fields: %s", index+1, strings.Join(missing, ", ")))
	}
	if *it.Quantity <= 0 {
		return newValidationError(fmt.Sprintf("Item %d: quantity must be greater than 0", index+1))
	}
	return nil
}
