package product

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
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	// DecrementColorStock removes qty units from one color only if at least
	// qty units are available, and refreshes the product in-stock flag.
	DecrementColorStock(ctx context.Context, productID, color string, qty int) error
	IncrementColorStock(ctx context.Context, productID, color string, qty int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, description, price, image_url, category, sizes, in_stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var sizes pq.StringArray
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category,
		&sizes, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Sizes = []string(sizes)
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	p.Colors = []ColorVariant{}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	colors, err := r.loadColors(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	if c, ok := colors[p.ID]; ok {
		p.Colors = c
	}

	return p, nil
}

func (r *repository) loadColors(ctx context.Context, productIDs []string) (map[string][]ColorVariant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, stock, in_stock
		FROM product_colors
		WHERE product_id = ANY($1)
		ORDER BY product_id, position
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("load colors: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]ColorVariant, len(productIDs))
	for rows.Next() {
		var productID string
		var c ColorVariant
		if err := rows.Scan(&productID, &c.Name, &c.Stock, &c.InStock); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		out[productID] = append(out[productID], c)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if opts.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, opts.Category)
		argIndex++
	}
	if opts.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+opts.Search+"%")
		argIndex++
	}
	if opts.InStockOnly {
		conditions = append(conditions, "in_stock = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := paginate(opts.Limit, opts.Page)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []*Product{}
	ids := []string{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	colors, err := r.loadColors(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if c, ok := colors[p.ID]; ok {
			p.Colors = c
		}
	}

	return products, nil
}

func paginate(limit, page int) (int, int) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, image_url, category, sizes, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Category, pq.Array(p.Sizes), p.InStock).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	if err := insertColors(ctx, tx, p.ID, p.Colors); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4,
			category = $5, sizes = $6, in_stock = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING created_at, updated_at
	`, p.Name, p.Description, p.Price, p.ImageURL, p.Category, pq.Array(p.Sizes), p.InStock, p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_colors WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear colors: %w", err)
	}
	if err := insertColors(ctx, tx, p.ID, p.Colors); err != nil {
		return err
	}

	return tx.Commit()
}

func insertColors(ctx context.Context, tx *sql.Tx, productID string, colors []ColorVariant) error {
	for i, c := range colors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_colors (product_id, name, stock, in_stock, position)
			VALUES ($1, $2, $3, $4, $5)
		`, productID, c.Name, c.Stock, c.InStock, i)
		if err != nil {
			return fmt.Errorf("insert color %q: %w", c.Name, err)
		}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrProductNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) DecrementColorStock(ctx context.Context, productID, color string, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementColorStock"),
		zap.String("product_id", productID),
		zap.String("color", color),
		zap.Int("quantity", qty),
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

	res, err := tx.ExecContext(ctx, `
		UPDATE product_colors
		SET stock = stock - $1, in_stock = (stock - $1) > 0
		WHERE product_id = $2 AND name = $3 AND stock >= $1
	`, qty, productID, color)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		var available int
		err := tx.QueryRowContext(ctx, `
			SELECT stock FROM product_colors WHERE product_id = $1 AND name = $2
		`, productID, color).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrColorNotFound
		}
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}

		log.Info("bounded decrement refused", zap.Int("available", available))
		return &ShortageError{ProductID: productID, Color: color, Available: available, Requested: qty}
	}

	if err := refreshProductFlag(ctx, tx, productID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decrement: %w", err)
	}
	committed = true

	log.Debug("stock decremented")
	return nil
}

func (r *repository) IncrementColorStock(ctx context.Context, productID, color string, qty int) error {
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

	res, err := tx.ExecContext(ctx, `
		UPDATE product_colors
		SET stock = stock + $1, in_stock = (stock + $1) > 0
		WHERE product_id = $2 AND name = $3
	`, qty, productID, color)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrColorNotFound
	}

	if err := refreshProductFlag(ctx, tx, productID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit increment: %w", err)
	}
	committed = true
	return nil
}

func refreshProductFlag(ctx context.Context, tx *sql.Tx, productID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET in_stock = EXISTS (
			SELECT 1 FROM product_colors WHERE product_id = $1 AND stock > 0
		), updated_at = NOW()
		WHERE id = $1
	`, productID)
	if err != nil {
		return fmt.Errorf("refresh product stock flag: %w", err)
	}
	return nil
}
