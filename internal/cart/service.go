package cart

import (
	"context"
	"errors"
	"slices"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductLookup is the part of the catalog the cart needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Service defines the business logic for carts.
type Service interface {
	AddToCart(ctx context.Context, params AddToCartParams) (*CartItem, error)
	GetCart(ctx context.Context, userID string) ([]*CartItem, error)
	UpdateCartQuantity(ctx context.Context, params UpdateCartParams) error
	RemoveFromCart(ctx context.Context, key LineKey) error
	ClearCart(ctx context.Context, userID string) error
}

type service struct {
	repo     Repository
	products ProductLookup
}

func NewService(repo Repository, products ProductLookup) Service {
	return &service{repo: repo, products: products}
}

// AddToCart adds a product line to a user's cart, merging with an existing
// line for the same color and size.
func (s *service) AddToCart(ctx context.Context, params AddToCartParams) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
		zap.String("product_id", params.ProductID),
		zap.Int("quantity", params.Quantity),
	)

	if params.UserID == "" {
		return nil, ErrUserNotAuthenticated
	}
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	params.Color = strings.TrimSpace(params.Color)
	params.Size = strings.TrimSpace(params.Size)

	p, err := s.products.GetByID(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}

	available, err := availableFor(p, params)
	if err != nil {
		log.Info("add to cart rejected", zap.Error(err))
		return nil, err
	}

	key := LineKey{UserID: params.UserID, ProductID: p.ID, Color: params.Color, Size: params.Size}
	existing, err := s.repo.GetCartItem(ctx, key)
	if err != nil {
		return nil, err
	}

	finalQty := params.Quantity
	if existing != nil {
		finalQty += existing.Quantity
	}
	if finalQty > available {
		log.Info("insufficient stock for cart",
			zap.Int("available", available),
			zap.Int("requested", finalQty),
		)
		return nil, ErrInsufficientStock
	}

	if existing != nil {
		if err := s.repo.SetQuantity(ctx, key, finalQty); err != nil {
			log.Error("failed to update cart item", zap.Error(err))
			return nil, err
		}
		existing.Quantity = finalQty
		return existing, nil
	}

	item := &CartItem{
		ID:        uuid.New().String(),
		UserID:    params.UserID,
		ProductID: p.ID,
		Quantity:  finalQty,
		Color:     params.Color,
		Size:      params.Size,
	}
	if err := s.repo.CreateCartItem(ctx, item); err != nil {
		log.Error("failed to create cart item", zap.Error(err))
		return nil, err
	}

	log.Info("cart item created", zap.String("cart_item_id", item.ID))
	return item, nil
}

func availableFor(p *product.Product, params AddToCartParams) (int, error) {
	if len(p.Sizes) > 0 && params.Size != "" && !slices.Contains(p.Sizes, params.Size) {
		return 0, ErrInvalidSize
	}
	if len(p.Colors) == 0 {
		return 0, ErrProductNotOrderable
	}
	if params.Color == "" {
		return 0, ErrColorRequired
	}
	c, ok := p.Color(params.Color)
	if !ok {
		return 0, ErrInvalidColor
	}
	return c.Stock, nil
}

func (s *service) GetCart(ctx context.Context, userID string) ([]*CartItem, error) {
	if userID == "" {
		return nil, ErrUserNotAuthenticated
	}
	return s.repo.GetCartRows(ctx, userID)
}

// UpdateCartQuantity sets a line's quantity; zero or less removes the line.
func (s *service) UpdateCartQuantity(ctx context.Context, params UpdateCartParams) error {
	if params.UserID == "" {
		return ErrUserNotAuthenticated
	}
	if params.Quantity <= 0 {
		return s.repo.RemoveFromCart(ctx, params.LineKey)
	}

	p, err := s.products.GetByID(ctx, params.ProductID)
	if err != nil {
		return err
	}
	available, err := availableFor(p, AddToCartParams{Color: params.Color, Size: params.Size})
	if err != nil {
		return err
	}
	if params.Quantity > available {
		return ErrInsufficientStock
	}

	return s.repo.SetQuantity(ctx, params.LineKey, params.Quantity)
}

func (s *service) RemoveFromCart(ctx context.Context, key LineKey) error {
	if key.UserID == "" {
		return ErrUserNotAuthenticated
	}
	return s.repo.RemoveFromCart(ctx, key)
}

func (s *service) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserNotAuthenticated
	}
	err := s.repo.ClearCart(ctx, userID)
	if errors.Is(err, ErrCartEmpty) {
		return nil
	}
	return err
}
