// Package inventorytest provides an in-memory inventory store honouring the
// bounded decrement contract, for tests of code built on the ledger.
package inventorytest

import (
	"context"
	"sync"
	"time"

	"storefront-be/internal/product"
)

type MemoryStore struct {
	mu       sync.Mutex
	products map[string]*product.Product

	// Optional fault hooks, set before use.
	GetErr       func(productID string) error
	DecrementErr func(productID, color string) error
	IncrementErr func(productID, color string) error
	Delay        time.Duration

	decrements int
	increments int
}

func NewMemoryStore(products ...*product.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]*product.Product)}
	for _, p := range products {
		s.Put(p)
	}
	return s
}

// Put stores a copy of p with its stock flags refreshed.
func (s *MemoryStore) Put(p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(p)
	cp.RefreshStockFlags()
	s.products[cp.ID] = cp
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.Delay):
		return nil
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.GetErr != nil {
		if err := s.GetErr(id); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) DecrementColorStock(ctx context.Context, productID, color string, qty int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.DecrementErr != nil {
		if err := s.DecrementErr(productID, color); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return product.ErrProductNotFound
	}
	c, ok := p.Color(color)
	if !ok {
		return product.ErrColorNotFound
	}
	if c.Stock < qty {
		return &product.ShortageError{ProductID: productID, Color: color, Available: c.Stock, Requested: qty}
	}
	c.Stock -= qty
	p.RefreshStockFlags()
	s.decrements++
	return nil
}

func (s *MemoryStore) IncrementColorStock(ctx context.Context, productID, color string, qty int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.IncrementErr != nil {
		if err := s.IncrementErr(productID, color); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return product.ErrProductNotFound
	}
	c, ok := p.Color(color)
	if !ok {
		return product.ErrColorNotFound
	}
	c.Stock += qty
	p.RefreshStockFlags()
	s.increments++
	return nil
}

// Product returns a copy of the stored product, or nil.
func (s *MemoryStore) Product(id string) *product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	return clone(p)
}

func (s *MemoryStore) Stock(productID, color string) int {
	p := s.Product(productID)
	if p == nil {
		return 0
	}
	c, ok := p.Color(color)
	if !ok {
		return 0
	}
	return c.Stock
}

// TotalStock sums stock over every color of every product.
func (s *MemoryStore) TotalStock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, p := range s.products {
		total += p.TotalStock()
	}
	return total
}

func (s *MemoryStore) Decrements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decrements
}

func (s *MemoryStore) Increments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increments
}

func clone(p *product.Product) *product.Product {
	cp := *p
	cp.Colors = append([]product.ColorVariant(nil), p.Colors...)
	cp.Sizes = append([]string(nil), p.Sizes...)
	return &cp
}
