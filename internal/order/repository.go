package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListByCustomer(ctx context.Context, params ListOrdersParams) ([]*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, paymentStatus PaymentStatus) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_email,
	shipping_address, subtotal, tax, total_amount, status, payment_status,
	order_date, notes, created_at, updated_at`

// Create inserts the order and its items in one transaction.
func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("order_number", o.OrderNumber),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, customer_name, customer_email,
			shipping_address, subtotal, tax, total_amount,
			status, payment_status, order_date, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at
	`,
		o.ID,
		o.OrderNumber,
		o.CustomerID,
		o.CustomerName,
		o.CustomerEmail,
		o.ShippingAddress,
		o.Subtotal,
		o.Tax,
		o.TotalAmount,
		o.Status,
		o.PaymentStatus,
		o.OrderDate,
		o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("order number collision")
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, product_id, product_name,
				quantity, price, total, color
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			o.ID,
			i,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
			item.Total,
			item.Color,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	committed = true

	log.Info("order persisted", zap.String("order_id", o.ID), zap.Int("items", len(o.Items)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.ShippingAddress,
		&o.Subtotal,
		&o.Tax,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentStatus,
		&o.OrderDate,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Items = []OrderItem{}
	return &o, nil
}

func (r *repository) ListByCustomer(ctx context.Context, params ListOrdersParams) ([]*Order, error) {
	var (
		conditions = []string{"customer_id = $1"}
		args       = []any{params.CustomerID}
		argIndex   = 2
	)

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, params.Status)
		argIndex++
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []*Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if it, ok := items[o.ID]; ok {
			o.Items = it
		}
	}

	return orders, nil
}

// loadItems fetches line items for the given orders, populating the
// current product name and image where the product still exists.
func (r *repository) loadItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.order_id, oi.product_id,
			COALESCE(p.name, oi.product_name),
			oi.quantity, oi.price, oi.total, oi.color,
			COALESCE(p.image_url, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it OrderItem
		if err := rows.Scan(
			&orderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.Price, &it.Total, &it.Color,
			&it.ProductImage,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	if it, ok := items[o.ID]; ok {
		o.Items = it
	}
	return o, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status, paymentStatus PaymentStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
	`, status, paymentStatus, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
