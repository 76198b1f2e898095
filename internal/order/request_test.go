package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CreateOrderRequest)
		message string
	}{
		{
			name: "Missing fields listed",
			mutate: func(r *CreateOrderRequest) {
				r.CustomerID = nil
				r.CustomerEmail = ptr("  ")
				r.Tax = nil
			},
			message: "Missing required fields: customerId, customerEmail, tax",
		},
		{
			name:    "Missing items",
			mutate:  func(r *CreateOrderRequest) { r.Items = nil },
			message: "Missing required fields: items",
		},
		{
			name:    "Missing total amount",
			mutate:  func(r *CreateOrderRequest) { r.TotalAmount = nil },
			message: "Missing required fields: totalAmount",
		},
		{
			name:    "Empty items",
			mutate:  func(r *CreateOrderRequest) { r.Items = []ItemRequest{} },
			message: "Order must contain at least one item",
		},
		{
			name: "Item missing fields",
			mutate: func(r *CreateOrderRequest) {
				r.Items[0].Price = nil
				r.Items[0].ProductName = nil
			},
			message: "Item 1 is missing required fields: productName, price",
		},
		{
			name:    "Zero quantity",
			mutate:  func(r *CreateOrderRequest) { r.Items[0].Quantity = ptr(0) },
			message: "Item 1: quantity must be greater than 0",
		},
		{
			name:    "Invalid status",
			mutate:  func(r *CreateOrderRequest) { r.Status = ptr(Status("teleported")) },
			message: "Invalid status: teleported",
		},
		{
			name:    "Invalid payment status",
			mutate:  func(r *CreateOrderRequest) { r.PaymentStatus = ptr(PaymentStatus("iou")) },
			message: "Invalid paymentStatus: iou",
		},
		{
			name: "Total mismatch",
			mutate: func(r *CreateOrderRequest) {
				r.Subtotal, r.Tax, r.TotalAmount = ptr(100.0), ptr(5.0), ptr(106.0)
			},
			message: "Total amount mismatch: subtotal + tax = 105.00, totalAmount = 106.00",
		},
		{
			name:    "Negative amount",
			mutate:  func(r *CreateOrderRequest) { r.Tax = ptr(-1.0) },
			message: "Amounts must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 20))
			tt.mutate(req)

			err := req.Validate()

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}

	t.Run("Within tolerance", func(t *testing.T) {
		for _, total := range []float64{105, 105.01, 104.99} {
			req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 100))
			req.Subtotal, req.Tax, req.TotalAmount = ptr(100.0), ptr(5.0), ptr(total)
			assert.NoError(t, req.Validate(), "total %v", total)
		}
	})

	t.Run("Float rounding", func(t *testing.T) {
		req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 0.1))
		req.Subtotal, req.Tax, req.TotalAmount = ptr(0.1), ptr(0.2), ptr(0.3)
		assert.NoError(t, req.Validate())
	})
}

func TestDecodeCreateOrderRequest(t *testing.T) {
	t.Run("Valid body", func(t *testing.T) {
		body := `{
			"customerId": "user-1",
			"customerName": "Ada",
			"customerEmail": "ada@example.com",
			"items": [{"productId": "p1", "productName": "Tee", "quantity": 2, "price": 10, "total": 20, "color": "Red"}],
			"shippingAddress": {"fullName": "Ada", "line1": "1 Main St", "city": "London", "postalCode": "N1", "country": "UK"},
			"subtotal": 20, "tax": 2, "totalAmount": 22,
			"orderDate": "2026-01-02T15:04:05Z"
		}`

		req, err := DecodeCreateOrderRequest(strings.NewReader(body))
		require.NoError(t, err)
		assert.NoError(t, req.Validate())
		assert.Equal(t, "Red", req.Items[0].Color)
		assert.Equal(t, "London", req.ShippingAddress.City)
		assert.Equal(t, 2026, req.OrderDate.Year())
	})

	t.Run("Non numeric price", func(t *testing.T) {
		body := `{"items": [{"productId": "p1", "price": "ten"}]}`

		_, err := DecodeCreateOrderRequest(strings.NewReader(body))

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, "price")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		_, err := DecodeCreateOrderRequest(strings.NewReader(`{"customerId":`))

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "Invalid request body", vErr.Message)
	})
}
