package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a sellable item in the catalog. Stock is the
// authoritative inventory count; effective stock is never negative.
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	Price         float64   `json:"price" db:"price"`
	Stock         int       `json:"stock" db:"stock"`
	Customizable  bool      `json:"customizable" db:"customizable"`
	Sizes         []string  `json:"sizes" db:"sizes"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	GalleryImages []string  `json:"gallery_images" db:"gallery_images"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AvailableStock clamps the stored value at zero.
func (p *Product) AvailableStock() int {
	if p.Stock < 0 {
		return 0
	}
	return p.Stock
}

// ProductColor is a color variant of a product, owned 1:N by foreign key.
type ProductColor struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Hex       string    `json:"hex" db:"hex"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProductSnapshot is the denormalized product view attached to an order line
// at read time. When the referenced product no longer exists, a placeholder
// snapshot is substituted instead of failing the read.
type ProductSnapshot struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"image_url"`
}

// PlaceholderProductName is used when an order item references a product
// that has been deleted since the order was placed.
const PlaceholderProductName = "Product not available"

// PlaceholderSnapshot builds the substitute snapshot for a dangling
// product reference, pricing it from the order item itself.
func PlaceholderSnapshot(productID uuid.UUID, unitPrice float64) ProductSnapshot {
	return ProductSnapshot{
		ProductID: productID,
		Name:      PlaceholderProductName,
		Price:     unitPrice,
		ImageURL:  "",
	}
}
