package tracker

import (
	"context"
	"errors"

	"pricewatch-utils/pkg/models"
)

// ErrNotFound is returned when a tracked product does not exist in the store.
var ErrNotFound = errors.New("tracker: product not found")

// Store persists tracked products and their append-only price history.
type Store interface {
	// SaveProduct inserts or replaces a product record.
	SaveProduct(ctx context.Context, product *models.TrackedProduct) error
	// GetProduct returns a product by ID or ErrNotFound.
	GetProduct(ctx context.Context, id string) (*models.TrackedProduct, error)
	// GetProductByURL returns a product by its tracked URL or ErrNotFound.
	GetProductByURL(ctx context.Context, url string) (*models.TrackedProduct, error)
	// ListProducts returns all tracked products.
	ListProducts(ctx context.Context) ([]*models.TrackedProduct, error)
	// DeleteProduct removes a product and its history.
	DeleteProduct(ctx context.Context, id string) error

	// AppendHistory appends one price entry to a product's history.
	AppendHistory(ctx context.Context, entry *models.PriceEntry) error
	// GetHistory returns a product's history in insertion order.
	GetHistory(ctx context.Context, productID string) ([]models.PriceEntry, error)
	// LastEntry returns the most recent history entry, or nil with no error
	// when the history is empty.
	LastEntry(ctx context.Context, productID string) (*models.PriceEntry, error)
}
