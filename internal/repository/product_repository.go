package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"merchstore/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrGalleryFieldMissing indicates the remote schema lacks the
	// products.gallery_images column (pre-migration database).
	ErrGalleryFieldMissing = errors.New("gallery_images column does not exist")
)

// pgUndefinedColumn is the SQLSTATE for `column does not exist`.
const pgUndefinedColumn = "42703"

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error)
	UpdateGallery(ctx context.Context, id uuid.UUID, urls []string) error
	ProbeGalleryField(ctx context.Context) (bool, error)
}

type productRepository struct {
	db   *sql.DB
	caps *SchemaCapabilities
}

// NewProductRepository creates a new instance of ProductRepository. The
// capability set controls whether queries reference the gallery column.
func NewProductRepository(db *sql.DB, caps *SchemaCapabilities) ProductRepository {
	return &productRepository{db: db, caps: caps}
}

func (r *productRepository) selectColumns() string {
	if r.caps.GalleryField() {
		return "id, name, description, price, stock, customizable, sizes, image_url, gallery_images, created_at, updated_at"
	}
	return "id, name, description, price, stock, customizable, sizes, image_url, created_at, updated_at"
}

func (r *productRepository) scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	product := &domain.Product{}
	var sizes []byte
	var gallery []byte

	dest := []any{
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Customizable,
		&sizes,
		&product.ImageURL,
	}
	if r.caps.GalleryField() {
		dest = append(dest, &gallery)
	}
	dest = append(dest, &product.CreatedAt, &product.UpdatedAt)

	if err := scan(dest...); err != nil {
		return nil, err
	}

	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &product.Sizes); err != nil {
			return nil, fmt.Errorf("failed to decode sizes: %w", err)
		}
	}
	if len(gallery) > 0 {
		if err := json.Unmarshal(gallery, &product.GalleryImages); err != nil {
			return nil, fmt.Errorf("failed to decode gallery images: %w", err)
		}
	}

	return product, nil
}

// Create inserts a new product using parameterized queries.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	sizes, err := json.Marshal(product.Sizes)
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}

	query := `
		INSERT INTO products (id, name, description, price, stock, customizable, sizes, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Customizable,
		sizes,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates product attributes. Stock is deliberately excluded: it is
// only mutated through DecrementStock so admin edits cannot race the
// checkout path into a lost update.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	sizes, err := json.Marshal(product.Sizes)
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, customizable = $5,
		    sizes = $6, image_url = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Customizable,
		sizes,
		product.ImageURL,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID.
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, r.selectColumns())

	row := r.db.QueryRowContext(ctx, query, id)
	product, err := r.scanProduct(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs retrieves all products for the given IDs in a single batched
// query and returns them keyed by ID. IDs with no matching row are simply
// absent from the map; callers decide how to degrade.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	products := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1::uuid[])`, r.selectColumns())

	rows, err := r.db.QueryContext(ctx, query, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to batch fetch products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := r.scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// List retrieves products with pagination, newest first.
func (r *productRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, r.selectColumns())

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := r.scanProduct(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// DecrementStock atomically lowers stock by quantity, clamped at zero, and
// returns the new value. The clamp runs inside the UPDATE so concurrent
// checkouts can never drive stock negative.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	query := `
		UPDATE products
		SET stock = GREATEST(0, stock - $2)
		WHERE id = $1
		RETURNING stock
	`

	var newStock int
	err := r.db.QueryRowContext(ctx, query, id, quantity).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return newStock, nil
}

// UpdateGallery writes the gallery image URL list to the product row.
// Against a pre-migration database the UPDATE fails with undefined_column,
// which is translated to ErrGalleryFieldMissing so the reconciler can fall
// back to the local cache.
func (r *productRepository) UpdateGallery(ctx context.Context, id uuid.UUID, urls []string) error {
	gallery, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode gallery images: %w", err)
	}

	query := `UPDATE products SET gallery_images = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, gallery)
	if err != nil {
		if isUndefinedColumn(err) {
			return ErrGalleryFieldMissing
		}
		return fmt.Errorf("failed to update gallery images: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ProbeGalleryField checks whether the gallery column exists by selecting it.
func (r *productRepository) ProbeGalleryField(ctx context.Context) (bool, error) {
	var ignored []byte
	err := r.db.QueryRowContext(ctx, `SELECT gallery_images FROM products LIMIT 1`).Scan(&ignored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Empty table, but the column resolved.
			return true, nil
		}
		if isUndefinedColumn(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe gallery column: %w", err)
	}

	return true, nil
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedColumn
}

// uuidArray renders IDs as a postgres array literal for ANY($1) queries.
func uuidArray(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
