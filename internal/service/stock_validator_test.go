package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchstore/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func testProduct(name string, stock int) *domain.Product {
	now := time.Now()
	return &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     25.0,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Feature: merch-storefront, Property 1: Stock verdict matches availability
// Validates: Requirements 1.1, 1.2
func TestProperty_StockVerdictMatchesAvailability(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("HasEnoughStock is true exactly when available >= requested", prop.ForAll(
		func(stock int, requested int) bool {
			product := testProduct("Classic Tee", stock)
			repo := newMemProductRepo(product)
			validator := NewStockValidator(repo, zap.NewNop())

			reports := validator.Validate(context.Background(), []StockRequest{
				{ProductID: product.ID, Quantity: requested},
			})

			if len(reports) != 1 {
				return false
			}
			report := reports[0]

			available := stock
			if available < 0 {
				available = 0
			}

			return report.Available == available &&
				report.Requested == requested &&
				report.HasEnoughStock == (available >= requested) &&
				report.ProductName == "Classic Tee"
		},
		gen.IntRange(-5, 50),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: merch-storefront, Property 2: One failing item never hides the rest
// Validates: Requirements 1.3
func TestProperty_EveryRequestGetsAVerdict(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a batch of M requests always yields M reports", prop.ForAll(
		func(quantities []int) bool {
			repo := newMemProductRepo()
			requests := make([]StockRequest, len(quantities))
			for i, q := range quantities {
				// Every other product exists; the rest are dangling ids.
				if i%2 == 0 {
					product := testProduct("Hoodie", q+1)
					repo.Create(context.Background(), product)
					requests[i] = StockRequest{ProductID: product.ID, Quantity: q}
				} else {
					requests[i] = StockRequest{ProductID: uuid.New(), Quantity: q}
				}
			}

			validator := NewStockValidator(repo, zap.NewNop())
			reports := validator.Validate(context.Background(), requests)

			if len(reports) != len(requests) {
				return false
			}
			for i, report := range reports {
				if report.ProductID != requests[i].ProductID {
					return false
				}
				// Dangling ids degrade to zero-available, insufficient.
				if i%2 != 0 && (report.Available != 0 || report.HasEnoughStock) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 20)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidateUsesOneBatchedRead(t *testing.T) {
	a := testProduct("Tee A", 10)
	b := testProduct("Tee B", 10)
	repo := newMemProductRepo(a, b)
	validator := NewStockValidator(repo, zap.NewNop())

	// Duplicate product ids must not inflate the read.
	validator.Validate(context.Background(), []StockRequest{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 2},
		{ProductID: a.ID, Quantity: 3},
	})

	if repo.findByIDsCalls != 1 {
		t.Fatalf("expected one batched read, got %d", repo.findByIDsCalls)
	}
}

func TestValidateDegradesWhenBatchReadFails(t *testing.T) {
	a := testProduct("Tee A", 10)
	repo := newMemProductRepo(a)
	repo.findByIDsErr = errors.New("connection reset")
	validator := NewStockValidator(repo, zap.NewNop())

	reports := validator.Validate(context.Background(), []StockRequest{
		{ProductID: a.ID, Quantity: 1},
	})

	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].HasEnoughStock {
		t.Error("a failed read must report insufficient, not sufficient")
	}
	if reports[0].Available != 0 {
		t.Errorf("expected zero availability on read failure, got %d", reports[0].Available)
	}
}

func TestInsufficientReportsFiltersFailingItems(t *testing.T) {
	reports := []StockReport{
		{ProductName: "A", Requested: 1, Available: 5, HasEnoughStock: true},
		{ProductName: "B", Requested: 2, Available: 1, HasEnoughStock: false},
		{ProductName: "C", Requested: 3, Available: 3, HasEnoughStock: true},
	}

	failed := InsufficientReports(reports)
	if len(failed) != 1 || failed[0].ProductName != "B" {
		t.Fatalf("expected only B to fail, got %+v", failed)
	}
}
