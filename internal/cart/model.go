package cart

import "time"

type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Color     string    `json:"color,omitempty"`
	Size      string    `json:"size,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Populated on reads from the products table.
	ProductName  string  `json:"productName,omitempty"`
	ProductPrice float64 `json:"productPrice,omitempty"`
	ProductImage string  `json:"productImage,omitempty"`
}

// LineKey identifies one cart line: a product in a given color and size.
type LineKey struct {
	UserID    string
	ProductID string
	Color     string
	Size      string
}

type AddToCartParams struct {
	UserID    string
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type UpdateCartParams struct {
	LineKey
	Quantity int
}
