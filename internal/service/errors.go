package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart is returned when a checkout carries no line items.
	ErrEmptyCart = errors.New("cart is empty")
)

// InsufficientStockError aborts a checkout before any write happens. It
// names each offending item so the user gets an actionable message, and
// carries the payment reference when payment had already completed so the
// reconciliation case is never silently dropped.
type InsufficientStockError struct {
	Items            []StockReport
	PaymentReference string
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID.String()
		}
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", name, item.Requested, item.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// OrderWriteError means the order row itself could not be written. When a
// payment reference is attached, the payment succeeded but no durable order
// exists: the reference must reach the user with a support instruction.
type OrderWriteError struct {
	PaymentReference string
	Err              error
}

func (e *OrderWriteError) Error() string {
	if e.PaymentReference != "" {
		return fmt.Sprintf("order write failed for paid reference %s: %v", e.PaymentReference, e.Err)
	}
	return fmt.Sprintf("order write failed: %v", e.Err)
}

func (e *OrderWriteError) Unwrap() error {
	return e.Err
}
