package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Redis key layout. Products are JSON documents, the ID set supports
// enumeration without KEYS scans, and history is an append-only list.
const (
	productKeyPrefix = "tracker:product:"
	urlKeyPrefix     = "tracker:url:"
	historyKeyPrefix = "tracker:history:"
	productIndexKey  = "tracker:products"
)

// RedisStore persists tracked products in Redis so tracking survives
// restarts and can be shared between instances.
type RedisStore struct {
	client *utils.RedisClient
}

// NewRedisStore creates a Redis-backed store on an existing client.
func NewRedisStore(client *utils.RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

// SaveProduct inserts or replaces a product record.
func (s *RedisStore) SaveProduct(ctx context.Context, product *models.TrackedProduct) error {
	if err := s.client.SetJSON(ctx, productKeyPrefix+product.ID, product, 0); err != nil {
		return err
	}
	if err := s.client.SetJSON(ctx, urlKeyPrefix+product.URL, product.ID, 0); err != nil {
		return err
	}
	return s.client.SAdd(ctx, productIndexKey, product.ID)
}

// GetProduct returns a product by ID.
func (s *RedisStore) GetProduct(ctx context.Context, id string) (*models.TrackedProduct, error) {
	var product models.TrackedProduct
	err := s.client.GetJSON(ctx, productKeyPrefix+id, &product)
	if err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByURL returns a product by its tracked URL.
func (s *RedisStore) GetProductByURL(ctx context.Context, url string) (*models.TrackedProduct, error) {
	var id string
	err := s.client.GetJSON(ctx, urlKeyPrefix+url, &id)
	if err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// ListProducts returns all tracked products. Products whose record vanished
// between the index read and the fetch are skipped.
func (s *RedisStore) ListProducts(ctx context.Context) ([]*models.TrackedProduct, error) {
	ids, err := s.client.SMembers(ctx, productIndexKey)
	if err != nil {
		return nil, err
	}

	products := make([]*models.TrackedProduct, 0, len(ids))
	for _, id := range ids {
		product, err := s.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// DeleteProduct removes a product and its history.
func (s *RedisStore) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.client.Delete(ctx, urlKeyPrefix+product.URL); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, historyKeyPrefix+id); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, productKeyPrefix+id); err != nil {
		return err
	}
	return s.client.SRem(ctx, productIndexKey, id)
}

// AppendHistory appends one price entry to a product's history list.
func (s *RedisStore) AppendHistory(ctx context.Context, entry *models.PriceEntry) error {
	return s.client.RPushJSON(ctx, historyKeyPrefix+entry.ProductID, entry)
}

// GetHistory returns a product's history in insertion order.
func (s *RedisStore) GetHistory(ctx context.Context, productID string) ([]models.PriceEntry, error) {
	raw, err := s.client.LRange(ctx, historyKeyPrefix+productID, 0, -1)
	if err != nil {
		return nil, err
	}

	entries := make([]models.PriceEntry, 0, len(raw))
	for _, element := range raw {
		var entry models.PriceEntry
		if err := json.Unmarshal([]byte(element), &entry); err != nil {
			return nil, fmt.Errorf("corrupt history entry for product %s: %w", productID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LastEntry returns the most recent history entry, or nil when empty.
func (s *RedisStore) LastEntry(ctx context.Context, productID string) (*models.PriceEntry, error) {
	raw, err := s.client.LRange(ctx, historyKeyPrefix+productID, -1, -1)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entry models.PriceEntry
	if err := json.Unmarshal([]byte(raw[0]), &entry); err != nil {
		return nil, fmt.Errorf("corrupt history entry for product %s: %w", productID, err)
	}
	return &entry, nil
}
