package product

import "time"

// ColorVariant is a named stock-keeping unit within a product.
type ColorVariant struct {
	Name    string `json:"name"`
	Stock   int    `json:"stock"`
	InStock bool   `json:"inStock"`
}

type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       float64        `json:"price"`
	ImageURL    string         `json:"image,omitempty"`
	Category    string         `json:"category,omitempty"`
	Sizes       []string       `json:"sizes"`
	Colors      []ColorVariant `json:"colors"`
	InStock     bool           `json:"inStock"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// RefreshStockFlags recomputes the derived in-stock flags from color stock.
func (p *Product) RefreshStockFlags() {
	p.InStock = false
	for i := range p.Colors {
		p.Colors[i].InStock = p.Colors[i].Stock > 0
		if p.Colors[i].InStock {
			p.InStock = true
		}
	}
}

func (p *Product) Color(name string) (*ColorVariant, bool) {
	for i := range p.Colors {
		if p.Colors[i].Name == name {
			return &p.Colors[i], true
		}
	}
	return nil, false
}

func (p *Product) TotalStock() int {
	total := 0
	for _, c := range p.Colors {
		total += c.Stock
	}
	return total
}

type ListOptions struct {
	Category    string
	Search      string
	InStockOnly bool
	Limit       int
	Page        int
}

type ColorInput struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       float64      `json:"price"`
	ImageURL    string       `json:"image"`
	Category    string       `json:"category"`
	Sizes       []string     `json:"sizes"`
	Colors      []ColorInput `json:"colors"`
}
