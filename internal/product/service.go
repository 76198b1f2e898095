package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, opts ListOptions) ([]*Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id string, input ProductInput) (*Product, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "List"),
	)

	start := time.Now()

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	} else if opts.Limit > 100 {
		opts.Limit = 100
	}
	opts.Search = strings.TrimSpace(opts.Search)

	products, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to fetch product list",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	log.Info("get product list success",
		zap.Int("count", len(products)),
		zap.Int("page", opts.Page),
		zap.Int("limit", opts.Limit),
		zap.Duration("duration", time.Since(start)),
	)

	return products, nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, input ProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	p, err := buildProduct(input)
	if err != nil {
		log.Warn("invalid product input", zap.Error(err))
		return nil, err
	}
	p.ID = uuid.New().String()

	if err := s.repo.Create(ctx, p); err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.String("product_id", p.ID), zap.Int("colors", len(p.Colors)))
	return p, nil
}

func (s *service) Update(ctx context.Context, id string, input ProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.String("product_id", id),
	)

	p, err := buildProduct(input)
	if err != nil {
		log.Warn("invalid product input", zap.Error(err))
		return nil, err
	}
	p.ID = id

	if err := s.repo.Update(ctx, p); err != nil {
		log.Error("failed to update product", zap.Error(err))
		return nil, err
	}

	log.Info("product updated")
	return p, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		logger.FromCtx(ctx).Warn("failed to delete product",
			zap.String("product_id", id),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// buildProduct validates admin input and derives the stock flags.
func buildProduct(input ProductInput) (*Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if input.Price < 0 {
		return nil, ErrNegativePrice
	}

	seen := make(map[string]bool, len(input.Colors))
	colors := make([]ColorVariant, 0, len(input.Colors))
	for _, c := range input.Colors {
		colorName := strings.TrimSpace(c.Name)
		if colorName == "" {
			return nil, ErrEmptyColorName
		}
		if c.Stock < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeStock, colorName)
		}
		if seen[colorName] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColor, colorName)
		}
		seen[colorName] = true
		colors = append(colors, ColorVariant{Name: colorName, Stock: c.Stock})
	}

	sizes := input.Sizes
	if sizes == nil {
		sizes = []string{}
	}

	p := &Product{
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		Category:    input.Category,
		Sizes:       sizes,
		Colors:      colors,
	}
	p.RefreshStockFlags()
	return p, nil
}
