package service

import (
	"context"
	"fmt"
	"time"

	"merchstore/internal/domain"
	"merchstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutInput is everything the order writer needs: the cart lines, the
// precomputed subtotal, shipping, the destination, and the optional
// reference handed back by the payment popup.
type CheckoutInput struct {
	Lines            []domain.CartLine
	Subtotal         float64
	ShippingCost     float64
	ShippingAddress  domain.ShippingAddress
	PaymentReference string
}

// CheckoutResult reports the durable order plus whether any per-item
// sub-steps failed after the order row was written. Incomplete results are
// still successes: the order exists and the fulfillment sweep reconciles
// the rest.
type CheckoutResult struct {
	Order      *domain.Order
	Incomplete bool
}

// CheckoutService is the order writer. The backing store has no
// multi-document transactions, so the write path is an explicit sequence
// with persisted intermediate state (OrderItem.StockApplied) instead of an
// implicit all-or-nothing assumption.
type CheckoutService struct {
	orders   repository.OrderRepository
	items    repository.OrderItemRepository
	products repository.ProductRepository
	stock    *StockValidator
	logger   *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	orders repository.OrderRepository,
	items repository.OrderItemRepository,
	products repository.ProductRepository,
	stock *StockValidator,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		items:    items,
		products: products,
		stock:    stock,
		logger:   logger,
	}
}

// PlaceOrder persists a validated checkout. userID is nil for guest
// checkout; the absence of a session is a valid state, never a failure.
//
// Failure semantics, in order:
//   - stock re-validation fails: abort before any write, naming the items;
//   - the order row write fails: nothing was persisted, retryable;
//   - any later per-item step fails: logged and left to the sweep, the
//     order stands as the financial record and is returned successfully.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID *uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Authoritative stock check against fresh reads. Stock can have moved
	// since the cart was displayed.
	requests := make([]StockRequest, len(in.Lines))
	for i, line := range in.Lines {
		requests[i] = StockRequest{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	if failed := InsufficientReports(s.stock.Validate(ctx, requests)); len(failed) > 0 {
		if in.PaymentReference != "" {
			// Payment already completed; this needs manual reconciliation,
			// not a silent drop.
			s.logger.Warn("Stock check failed after successful payment",
				zap.String("payment_reference", in.PaymentReference),
				zap.Int("failed_items", len(failed)),
			)
		}
		return nil, &InsufficientStockError{
			Items:            failed,
			PaymentReference: in.PaymentReference,
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           userID,
		Status:           domain.OrderStatusPending,
		Total:            in.Subtotal + in.ShippingCost,
		ShippingCost:     in.ShippingCost,
		ShippingAddress:  in.ShippingAddress,
		PaymentReference: in.PaymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, &OrderWriteError{
			PaymentReference: in.PaymentReference,
			Err:              fmt.Errorf("failed to create order: %w", err),
		}
	}

	// From here the order is durable. Per-item writes are best-effort
	// sequential; no step may turn the checkout into a failure.
	incomplete := false
	for _, line := range in.Lines {
		if err := s.writeLine(ctx, order.ID, line); err != nil {
			incomplete = true
			s.logger.Error("Order item step failed after order creation",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.Int("items", len(in.Lines)),
		zap.Float64("total", order.Total),
		zap.Bool("guest", userID == nil),
		zap.Bool("incomplete", incomplete),
	)

	return &CheckoutResult{Order: order, Incomplete: incomplete}, nil
}

// writeLine persists one order item and applies its stock decrement. The
// StockApplied flag is flipped only after the decrement, so a crash between
// the two leaves a record the fulfillment sweep can finish.
func (s *CheckoutService) writeLine(ctx context.Context, orderID uuid.UUID, line domain.CartLine) error {
	item := &domain.OrderItem{
		ID:           uuid.New(),
		OrderID:      orderID,
		ProductID:    line.ProductID,
		Quantity:     line.Quantity,
		Price:        line.Price,
		Color:        line.Color,
		Size:         line.Size,
		StockApplied: false,
		CreatedAt:    time.Now(),
	}

	if err := s.items.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	newStock, err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := s.items.MarkStockApplied(ctx, item.ID); err != nil {
		// The decrement ran; an unmarked item would be decremented again by
		// the sweep, so this is worth its own log line.
		return fmt.Errorf("stock decremented to %d but item not marked: %w", newStock, err)
	}

	return nil
}
