package category

// Category is a catalog facet derived from the products table.
type Category struct {
	Name         string `json:"name"`
	ProductCount int64  `json:"productCount"`
	InStockCount int64  `json:"inStockCount"`
}
