package repository

import (
	"context"
	"database/sql"
	"fmt"

	"merchstore/internal/domain"

	"github.com/google/uuid"
)

// ProductColorRepository defines the interface for product color variants.
type ProductColorRepository interface {
	Create(ctx context.Context, color *domain.ProductColor) error
	ListByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.ProductColor, error)
	DeleteByProductID(ctx context.Context, productID uuid.UUID) error
}

type productColorRepository struct {
	db *sql.DB
}

// NewProductColorRepository creates a new instance of ProductColorRepository.
func NewProductColorRepository(db *sql.DB) ProductColorRepository {
	return &productColorRepository{db: db}
}

// Create inserts a color variant for a product.
func (r *productColorRepository) Create(ctx context.Context, color *domain.ProductColor) error {
	query := `
		INSERT INTO product_colors (id, product_id, name, hex, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, color.ID, color.ProductID, color.Name, color.Hex, color.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product color: %w", err)
	}

	return nil
}

// ListByProductID retrieves all color variants of a product.
func (r *productColorRepository) ListByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.ProductColor, error) {
	query := `
		SELECT id, product_id, name, hex, created_at
		FROM product_colors
		WHERE product_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product colors: %w", err)
	}
	defer rows.Close()

	colors := []*domain.ProductColor{}
	for rows.Next() {
		color := &domain.ProductColor{}
		err := rows.Scan(&color.ID, &color.ProductID, &color.Name, &color.Hex, &color.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product color: %w", err)
		}
		colors = append(colors, color)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product colors: %w", err)
	}

	return colors, nil
}

// DeleteByProductID removes all color variants of a product.
func (r *productColorRepository) DeleteByProductID(ctx context.Context, productID uuid.UUID) error {
	query := `DELETE FROM product_colors WHERE product_id = $1`

	if _, err := r.db.ExecContext(ctx, query, productID); err != nil {
		return fmt.Errorf("failed to delete product colors: %w", err)
	}

	return nil
}
