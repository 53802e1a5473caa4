package tracker

import (
	"context"
	"sync"

	"pricewatch-utils/pkg/models"
)

// MemoryStore keeps tracked products and history in process memory. The
// default store; state is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*models.TrackedProduct
	byURL    map[string]string
	history  map[string][]models.PriceEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*models.TrackedProduct),
		byURL:    make(map[string]string),
		history:  make(map[string][]models.PriceEntry),
	}
}

// SaveProduct inserts or replaces a product record.
func (s *MemoryStore) SaveProduct(ctx context.Context, product *models.TrackedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneProduct(product)
	s.products[stored.ID] = stored
	s.byURL[stored.URL] = stored.ID
	return nil
}

// GetProduct returns a product by ID.
func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*models.TrackedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProduct(product), nil
}

// GetProductByURL returns a product by its tracked URL.
func (s *MemoryStore) GetProductByURL(ctx context.Context, url string) (*models.TrackedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProduct(s.products[id]), nil
}

// ListProducts returns all tracked products.
func (s *MemoryStore) ListProducts(ctx context.Context) ([]*models.TrackedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*models.TrackedProduct, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, cloneProduct(product))
	}
	return products, nil
}

// DeleteProduct removes a product and its history.
func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}

	delete(s.byURL, product.URL)
	delete(s.products, id)
	delete(s.history, id)
	return nil
}

// AppendHistory appends one price entry to a product's history.
func (s *MemoryStore) AppendHistory(ctx context.Context, entry *models.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[entry.ProductID] = append(s.history[entry.ProductID], *entry)
	return nil
}

// GetHistory returns a product's history in insertion order.
func (s *MemoryStore) GetHistory(ctx context.Context, productID string) ([]models.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[productID]
	out := make([]models.PriceEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// LastEntry returns the most recent history entry, or nil when empty.
func (s *MemoryStore) LastEntry(ctx context.Context, productID string) (*models.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[productID]
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]
	return &last, nil
}


// cloneProduct copies a product so callers never alias store internals.
func cloneProduct(p *models.TrackedProduct) *models.TrackedProduct {
	out := *p
	out.Watchers = append([]string(nil), p.Watchers...)
	return &out
}
