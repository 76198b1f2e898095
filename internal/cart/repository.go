package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type Repository interface {
	GetCartItem(ctx context.Context, key LineKey) (*CartItem, error)
	CreateCartItem(ctx context.Context, item *CartItem) error
	SetQuantity(ctx context.Context, key LineKey, quantity int) error
	GetCartRows(ctx context.Context, userID string) ([]*CartItem, error)
	RemoveFromCart(ctx context.Context, key LineKey) error
	ClearCart(ctx context.Context, userID string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// GetCartItem returns nil, nil when the line does not exist.
func (r *repository) GetCartItem(ctx context.Context, key LineKey) (*CartItem, error) {
	var item CartItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, quantity, color, size, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND product_id = $2 AND color = $3 AND size = $4
	`, key.UserID, key.ProductID, key.Color, key.Size).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
		&item.Color, &item.Size, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &item, nil
}

func (r *repository) CreateCartItem(ctx context.Context, item *CartItem) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, product_id, quantity, color, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, item.ID, item.UserID, item.ProductID, item.Quantity, item.Color, item.Size).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			return ErrCartItemAlreadyExist
		}
		return fmt.Errorf("create cart item: %w", err)
	}
	return nil
}

func (r *repository) SetQuantity(ctx context.Context, key LineKey, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET quantity = $1, updated_at = NOW()
		WHERE user_id = $2 AND product_id = $3 AND color = $4 AND size = $5
	`, quantity, key.UserID, key.ProductID, key.Color, key.Size)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) GetCartRows(ctx context.Context, userID string) ([]*CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			c.id, c.user_id, c.product_id, c.quantity, c.color, c.size,
			c.created_at, c.updated_at,
			COALESCE(p.name, ''), COALESCE(p.price, 0), COALESCE(p.image_url, '')
		FROM carts c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart rows: %w", err)
	}
	defer rows.Close()

	items := []*CartItem{}
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.Color, &item.Size,
			&item.CreatedAt, &item.UpdatedAt,
			&item.ProductName, &item.ProductPrice, &item.ProductImage,
		); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *repository) RemoveFromCart(ctx context.Context, key LineKey) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE user_id = $1 AND product_id = $2 AND color = $3 AND size = $4
	`, key.UserID, key.ProductID, key.Color, key.Size)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) ClearCart(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartEmpty
	}
	return nil
}
