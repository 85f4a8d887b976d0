package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iamwavecut/shopkeeper/internal/db"
)

const productColumns = `id, name, description, price, stock, category, created_at, updated_at`

func (c *sqliteClient) AddProduct(ctx context.Context, product *db.Product) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	product.CreatedAt, product.UpdatedAt = now, now
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (:id, :name, :description, :price, :stock, :category, :created_at, :updated_at)
	`
	if _, err := c.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("failed to add product: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetProduct(ctx context.Context, id string) (*db.Product, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.getProduct(ctx, id)
}

func (c *sqliteClient) getProduct(ctx context.Context, id string) (*db.Product, error) {
	var product db.Product
	err := c.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (c *sqliteClient) ListProducts(ctx context.Context, category string, inStockOnly bool) ([]*db.Product, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var (
		where []string
		args  []any
	)
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	if inStockOnly {
		where = append(where, "stock > 0")
	}
	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, name"

	var products []*db.Product
	if err := c.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// UpdateProduct returns nil, nil when the product does not exist.
func (c *sqliteClient) UpdateProduct(ctx context.Context, id string, update db.ProductUpdate) (*db.Product, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	sets := []string{"updated_at = ?"}
	args := []any{c.now()}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *update.Price)
	}
	if update.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *update.Stock)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	args = append(args, id)

	res, err := c.db.ExecContext(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return c.getProduct(ctx, id)
}

func (c *sqliteClient) DeleteProduct(ctx context.Context, id string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// CreateOrder stores the order with its items and takes the stock in one transaction.
// It fails with db.ErrInsufficientStock when any item cannot be covered.
func (c *sqliteClient) CreateOrder(ctx context.Context, order *db.Order) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	order.CreatedAt, order.UpdatedAt = now, now
	if order.Status == "" {
		order.Status = db.OrderStatusPending
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, subtotal, tax, delivery_fee, total, created_at, updated_at)
		VALUES (:id, :user_id, :status, :subtotal, :tax, :delivery_fee, :total, :created_at, :updated_at)
	`, order); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - ?, updated_at = ?
			WHERE id = ? AND stock >= ?
		`, item.Quantity, now, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to take stock: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("product %s: %w", item.ProductID, db.ErrInsufficientStock)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES (:order_id, :product_id, :quantity, :price)
		`, item); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetOrder(ctx context.Context, id string) (*db.Order, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var order db.Order
	err := c.db.GetContext(ctx, &order, `
		SELECT id, user_id, status, subtotal, tax, delivery_fee, total, created_at, updated_at
		FROM orders WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := c.db.SelectContext(ctx, &order.Items, `
		SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY product_id
	`, id); err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return &order, nil
}
