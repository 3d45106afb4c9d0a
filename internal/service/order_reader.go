package service

import (
	"context"
	"fmt"

	"merchstore/internal/domain"
	"merchstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderReader reconstructs orders for display, denormalizing product data at
// read time and tolerating products deleted after the order was placed.
type OrderReader struct {
	orders   repository.OrderRepository
	items    repository.OrderItemRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewOrderReader creates a new OrderReader.
func NewOrderReader(
	orders repository.OrderRepository,
	items repository.OrderItemRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) *OrderReader {
	return &OrderReader{
		orders:   orders,
		items:    items,
		products: products,
		logger:   logger,
	}
}

// GetOrder fetches one order, its items, and the distinct referenced
// products — three round trips regardless of item count. A dangling
// product reference yields a placeholder snapshot, never an error.
// repository.ErrOrderNotFound passes through untouched so callers can
// distinguish "truly not found" from transient failures.
func (r *OrderReader) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderView, error) {
	order, err := r.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := r.items.ListByOrderID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	views, err := r.buildViews(ctx, []*domain.Order{order}, items)
	if err != nil {
		return nil, err
	}

	return views[0], nil
}

// ListUserOrders reads a user's full history in exactly three batched
// queries: orders, items over all order ids, distinct products.
func (r *OrderReader) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.OrderView, error) {
	orders, err := r.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) == 0 {
		return []*domain.OrderView{}, nil
	}

	orderIDs := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	items, err := r.items.ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	return r.buildViews(ctx, orders, items)
}

// buildViews batch-fetches the distinct referenced products and assembles
// order views, substituting placeholder snapshots for missing products.
func (r *OrderReader) buildViews(ctx context.Context, orders []*domain.Order, items []*domain.OrderItem) ([]*domain.OrderView, error) {
	productIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := r.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	itemsByOrder := make(map[uuid.UUID][]*domain.OrderItem, len(orders))
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	views := make([]*domain.OrderView, len(orders))
	for i, order := range orders {
		view := &domain.OrderView{Order: *order, Lines: []domain.OrderLine{}}

		for _, item := range itemsByOrder[order.ID] {
			line := domain.OrderLine{Item: *item}

			if product, ok := products[item.ProductID]; ok {
				line.Product = domain.ProductSnapshot{
					ProductID: product.ID,
					Name:      product.Name,
					Price:     product.Price,
					ImageURL:  product.ImageURL,
				}
			} else {
				// Product deleted after the order was placed.
				line.Product = domain.PlaceholderSnapshot(item.ProductID, item.Price)
				r.logger.Debug("Substituted placeholder for missing product",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
				)
			}

			view.Lines = append(view.Lines, line)
		}

		views[i] = view
	}

	return views, nil
}
