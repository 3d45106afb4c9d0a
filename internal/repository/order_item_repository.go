package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"merchstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderItemNotFound = errors.New("order item not found")
)

// OrderItemRepository defines the interface for order item data access.
type OrderItemRepository interface {
	Create(ctx context.Context, item *domain.OrderItem) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]*domain.OrderItem, error)
	ListPendingStock(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.OrderItem, error)
	MarkStockApplied(ctx context.Context, id uuid.UUID) error
}

type orderItemRepository struct {
	db *sql.DB
}

// NewOrderItemRepository creates a new instance of OrderItemRepository.
func NewOrderItemRepository(db *sql.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

const orderItemColumns = "id, order_id, product_id, quantity, price, color, size, stock_applied, created_at"

func scanOrderItem(scan func(dest ...any) error) (*domain.OrderItem, error) {
	item := &domain.OrderItem{}
	err := scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
		&item.Color,
		&item.Size,
		&item.StockApplied,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Create inserts one order item. Items are written one at a time on the
// checkout path; there is no batch insert by design, mirroring the
// per-document write semantics of the store.
func (r *orderItemRepository) Create(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, color, size, stock_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.Color,
		item.Size,
		item.StockApplied,
		item.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

// ListByOrderID retrieves all items of one order in a single query.
func (r *orderItemRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`, orderItemColumns)

	return r.queryItems(ctx, query, orderID)
}

// ListByOrderIDs retrieves the items of many orders in one batched query, so
// a full order history costs a bounded number of round trips.
func (r *orderItemRepository) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]*domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []*domain.OrderItem{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY created_at
	`, orderItemColumns)

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	return r.queryItems(ctx, query, ids)
}

// ListPendingStock returns items whose stock decrement has not been applied
// and that are older than the grace period. Fresh items are excluded so the
// sweep does not race an in-flight checkout.
func (r *orderItemRepository) ListPendingStock(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.OrderItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM order_items
		WHERE stock_applied = FALSE AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`, orderItemColumns)

	cutoff := time.Now().Add(-olderThan)
	return r.queryItems(ctx, query, cutoff, limit)
}

// MarkStockApplied records that the inventory decrement for this item ran.
func (r *orderItemRepository) MarkStockApplied(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE order_items SET stock_applied = TRUE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark stock applied: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderItemNotFound
	}

	return nil
}

func (r *orderItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]*domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item, err := scanOrderItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
