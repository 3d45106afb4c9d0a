package service

import (
	"context"
	"time"

	"merchstore/internal/repository"

	"go.uber.org/zap"
)

// FulfillmentSweeper finishes checkouts that failed partway: order items
// whose stock decrement never ran are picked up after a grace period and
// reconciled. This is the compensation half of the non-transactional order
// write sequence.
type FulfillmentSweeper struct {
	items    repository.OrderItemRepository
	products repository.ProductRepository
	logger   *zap.Logger

	interval  time.Duration
	grace     time.Duration
	batchSize int
}

// NewFulfillmentSweeper creates a new FulfillmentSweeper.
func NewFulfillmentSweeper(
	items repository.OrderItemRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
	interval, grace time.Duration,
	batchSize int,
) *FulfillmentSweeper {
	return &FulfillmentSweeper{
		items:     items,
		products:  products,
		logger:    logger,
		interval:  interval,
		grace:     grace,
		batchSize: batchSize,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *FulfillmentSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Fulfillment sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Fulfillment sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Fulfillment sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one reconciliation pass. Per-item failures are logged and
// retried on the next pass; they never abort the batch.
func (s *FulfillmentSweeper) Sweep(ctx context.Context) error {
	pending, err := s.items.ListPendingStock(ctx, s.grace, s.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	applied := 0
	for _, item := range pending {
		newStock, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Warn("Sweep could not decrement stock",
				zap.String("order_item_id", item.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.items.MarkStockApplied(ctx, item.ID); err != nil {
			s.logger.Error("Sweep decremented stock but could not mark item",
				zap.String("order_item_id", item.ID.String()),
				zap.Int("new_stock", newStock),
				zap.Error(err),
			)
			continue
		}

		applied++
	}

	s.logger.Info("Fulfillment sweep completed",
		zap.Int("pending", len(pending)),
		zap.Int("applied", applied),
	)
	return nil
}
