package service

import (
	"context"

	"merchstore/internal/domain"
	"merchstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockRequest is one requested cart line to validate.
type StockRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockReport is the per-item validation verdict. A product that could not
// be fetched is reported with zero availability rather than failing the
// whole batch.
type StockReport struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Requested      int       `json:"requested"`
	Available      int       `json:"available"`
	HasEnoughStock bool      `json:"has_enough_stock"`
}

// StockValidator checks requested quantities against current inventory.
// It runs twice per checkout: once advisory from cart state, once
// authoritative inside the order writer against fresh reads; only the
// latter gates persistence.
type StockValidator struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewStockValidator creates a new StockValidator.
func NewStockValidator(products repository.ProductRepository, logger *zap.Logger) *StockValidator {
	return &StockValidator{products: products, logger: logger}
}

// Validate fetches all referenced products in one batched read and reports
// per item whether the requested quantity is coverable. It never returns an
// error: a failed or missing product read degrades that item to
// zero-available so the remaining items still get a verdict.
func (v *StockValidator) Validate(ctx context.Context, requests []StockRequest) []StockReport {
	ids := make([]uuid.UUID, 0, len(requests))
	seen := make(map[uuid.UUID]struct{}, len(requests))
	for _, req := range requests {
		if _, ok := seen[req.ProductID]; ok {
			continue
		}
		seen[req.ProductID] = struct{}{}
		ids = append(ids, req.ProductID)
	}

	products, err := v.products.FindByIDs(ctx, ids)
	if err != nil {
		v.logger.Error("Batched product read failed during stock validation",
			zap.Int("products", len(ids)),
			zap.Error(err),
		)
		products = map[uuid.UUID]*domain.Product{}
	}

	reports := make([]StockReport, 0, len(requests))
	for _, req := range requests {
		report := StockReport{
			ProductID: req.ProductID,
			Requested: req.Quantity,
		}

		product, ok := products[req.ProductID]
		if !ok {
			// Missing or failed read: insufficient, not an exception.
			reports = append(reports, report)
			continue
		}

		report.ProductName = product.Name
		report.Available = product.AvailableStock()
		report.HasEnoughStock = report.Available >= req.Quantity
		reports = append(reports, report)
	}

	return reports
}

// InsufficientReports filters a report set down to the failing items.
func InsufficientReports(reports []StockReport) []StockReport {
	var failed []StockReport
	for _, r := range reports {
		if !r.HasEnoughStock {
			failed = append(failed, r)
		}
	}
	return failed
}
