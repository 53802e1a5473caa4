package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/insights"
	"pricewatch-utils/internal/metrics"
	"pricewatch-utils/internal/notify"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// baselineNote marks the first history entry of a product. Baseline entries
// never trigger notifications.
const baselineNote = "Tracking started"

// ScrapeSubmitter dispatches scrape jobs through the worker pool. The pool
// manager satisfies it; tests use a stub.
type ScrapeSubmitter interface {
	SubmitJob(ctx context.Context, url string, options *models.ScrapeOptions) (*workers.JobResult, error)
}

// CheckOutcome classifies the result of one price re-check.
type CheckOutcome string

const (
	OutcomeChanged   CheckOutcome = "changed"
	OutcomeUnchanged CheckOutcome = "unchanged"
	OutcomeSkipped   CheckOutcome = "skipped"
	OutcomeFailed    CheckOutcome = "failed"
)

// CheckResult describes one re-check of a tracked product.
type CheckResult struct {
	ProductID string             `json:"product_id"`
	Outcome   CheckOutcome       `json:"outcome"`
	OldPrice  *float64           `json:"old_price,omitempty"`
	NewPrice  *float64           `json:"new_price,omitempty"`
	Entry     *models.PriceEntry `json:"entry,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Service implements product tracking: ingest, periodic price re-checks and
// watcher notification on change.
type Service struct {
	config    *config.Config
	store     Store
	pool      ScrapeSubmitter
	generator *insights.Generator
	notifier  notify.Notifier
	logger    *logrus.Logger
}

// NewService wires the tracker on top of the worker pool, a store and the
// insight/notification helpers.
func NewService(cfg *config.Config, store Store, pool ScrapeSubmitter, generator *insights.Generator, notifier notify.Notifier) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		pool:      pool,
		generator: generator,
		notifier:  notifier,
		logger:    utils.GetLogger(),
	}
}

// Track scrapes the URL and starts watching it for the given email. A page
// that yields no product name is rejected. Tracking an already-watched URL
// adds the watcher instead of creating a duplicate.
func (s *Service) Track(ctx context.Context, url, email string) (*models.TrackedProduct, *models.PriceEntry, error) {
	scraped, err := s.scrape(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	if scraped.Name == "" {
		return nil, nil, utils.NewBadRequestError(fmt.Sprintf("no product name found at %s; page is not trackable", url))
	}

	existing, err := s.store.GetProductByURL(ctx, url)
	if err == nil {
		return s.addWatcher(ctx, existing, email)
	}
	if err != ErrNotFound {
		return nil, nil, fmt.Errorf("tracker store lookup failed: %w", err)
	}

	now := time.Now().UTC()
	product := &models.TrackedProduct{
		ID:          uuid.New().String(),
		URL:         url,
		Site:        scraped.Site,
		Name:        scraped.Name,
		Description: scraped.Description,
		Brand:       scraped.Brand,
		ImageURL:    scraped.ImageURL,
		Currency:    scraped.Currency,
		Watchers:    []string{email},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveProduct(ctx, product); err != nil {
		return nil, nil, fmt.Errorf("failed to save tracked product: %w", err)
	}
	metrics.TrackedProducts.Inc()

	var baseline *models.PriceEntry
	if scraped.HasPrice() {
		baseline = &models.PriceEntry{
			ProductID:  product.ID,
			Price:      scraped.PriceValue(),
			RecordedAt: now,
			Note:       baselineNote,
		}
		if err := s.store.AppendHistory(ctx, baseline); err != nil {
			return nil, nil, fmt.Errorf("failed to record baseline price: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"url":        url,
		"name":       product.Name,
		"price":      scraped.PriceValue(),
		"watcher":    email,
	}).Info("Product tracking started")

	s.notifyAdded(product, email)

	return product, baseline, nil
}

// addWatcher registers another email on an existing product.
func (s *Service) addWatcher(ctx context.Context, product *models.TrackedProduct, email string) (*models.TrackedProduct, *models.PriceEntry, error) {
	if !product.HasWatcher(email) {
		product.Watchers = append(product.Watchers, email)
		product.UpdatedAt = time.Now().UTC()
		if err := s.store.SaveProduct(ctx, product); err != nil {
			return nil, nil, fmt.Errorf("failed to add watcher: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"watcher":    email,
		}).Info("Watcher added to tracked product")

		s.notifyAdded(product, email)
	}
	return product, nil, nil
}

// CheckPrice re-scrapes one tracked product and applies the history policy:
// no price skips, an unchanged price is a no-op, a change appends an entry
// and notifies every watcher. A notification failure never rolls back the
// history write.
func (s *Service) CheckPrice(ctx context.Context, product *models.TrackedProduct) *CheckResult {
	result := &CheckResult{ProductID: product.ID}

	scraped, err := s.scrape(ctx, product.URL)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		metrics.RecordPriceCheck(string(OutcomeFailed))

		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"url":        product.URL,
			"error":      err.Error(),
		}).Warn("Price check scrape failed")
		return result
	}

	if !scraped.HasPrice() {
		result.Outcome = OutcomeSkipped
		metrics.RecordPriceCheck(string(OutcomeSkipped))

		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"url":        product.URL,
		}).Info("Price check found no price, skipping")
		return result
	}

	newPrice := scraped.PriceValue()
	result.NewPrice = &newPrice

	last, err := s.store.LastEntry(ctx, product.ID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		metrics.RecordPriceCheck(string(OutcomeFailed))
		return result
	}

	if last == nil {
		// Price appeared after tracking started without one.
		entry := &models.PriceEntry{
			ProductID:  product.ID,
			Price:      newPrice,
			RecordedAt: time.Now().UTC(),
			Note:       baselineNote,
		}
		if err := s.store.AppendHistory(ctx, entry); err != nil {
			result.Outcome = OutcomeFailed
			result.Error = err.Error()
			metrics.RecordPriceCheck(string(OutcomeFailed))
			return result
		}

		result.Outcome = OutcomeChanged
		result.Entry = entry
		metrics.RecordPriceCheck(string(OutcomeChanged))
		return result
	}

	result.OldPrice = &last.Price

	if last.Price == newPrice {
		result.Outcome = OutcomeUnchanged
		metrics.RecordPriceCheck(string(OutcomeUnchanged))
		return result
	}

	entry := s.recordChange(ctx, product, last.Price, newPrice)
	if entry == nil {
		result.Outcome = OutcomeFailed
		result.Error = "failed to append price history"
		metrics.RecordPriceCheck(string(OutcomeFailed))
		return result
	}

	result.Outcome = OutcomeChanged
	result.Entry = entry
	metrics.RecordPriceCheck(string(OutcomeChanged))
	return result
}

// recordChange appends the history entry for a changed price and notifies
// watchers. Returns nil only when the history write fails.
func (s *Service) recordChange(ctx context.Context, product *models.TrackedProduct, oldPrice, newPrice float64) *models.PriceEntry {
	insight, reviewSummary := s.generator.Summarize(ctx, product.Name, oldPrice, newPrice, product.Description)
	if insight == insights.NotAvailable {
		// Deterministic verdict over history stands in for the model.
		if history, err := s.store.GetHistory(ctx, product.ID); err == nil {
			insight = insights.WorthIt(history, newPrice)
		}
	}

	entry := &models.PriceEntry{
		ProductID:     product.ID,
		Price:         newPrice,
		RecordedAt:    time.Now().UTC(),
		Insight:       insight,
		ReviewSummary: reviewSummary,
	}

	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"error":      err.Error(),
		}).Error("Failed to append price history entry")
		return nil
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveProduct(ctx, product); err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"error":      err.Error(),
		}).Warn("Failed to refresh product timestamp")
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"old_price":  oldPrice,
		"new_price":  newPrice,
	}).Info("Price change recorded")

	for _, watcher := range product.Watchers {
		if err := s.notifier.NotifyPriceChange(ctx, watcher, product, oldPrice, newPrice, entry.Insight, entry.ReviewSummary); err != nil {
			metrics.RecordNotification("failed")
			s.logger.WithFields(logrus.Fields{
				"product_id": product.ID,
				"watcher":    watcher,
				"error":      err.Error(),
			}).Warn("Price change notification failed")
			continue
		}
		metrics.RecordNotification("sent")
	}

	return entry
}

// CheckAll re-checks every tracked product. Each product is isolated: a
// failure or panic in one check never aborts the batch.
func (s *Service) CheckAll(ctx context.Context) ([]*CheckResult, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked products: %w", err)
	}
	metrics.TrackedProducts.Set(float64(len(products)))

	results := make([]*CheckResult, 0, len(products))
	for _, product := range products {
		results = append(results, s.checkOne(ctx, product))
	}

	s.logger.WithFields(logrus.Fields{
		"products": len(products),
		"changed":  countOutcome(results, OutcomeChanged),
		"failed":   countOutcome(results, OutcomeFailed),
	}).Info("Batch price check completed")

	return results, nil
}

// checkOne wraps CheckPrice with panic recovery so one hostile page cannot
// take down a batch run.
func (s *Service) checkOne(ctx context.Context, product *models.TrackedProduct) (result *CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &CheckResult{
				ProductID: product.ID,
				Outcome:   OutcomeFailed,
				Error:     fmt.Sprintf("panic during price check: %v", r),
			}
			metrics.RecordPriceCheck(string(OutcomeFailed))
			s.logger.WithFields(logrus.Fields{
				"product_id": product.ID,
				"panic":      fmt.Sprintf("%v", r),
			}).Error("Recovered panic during price check")
		}
	}()

	return s.CheckPrice(ctx, product)
}

// GetProduct returns one tracked product by ID.
func (s *Service) GetProduct(ctx context.Context, id string) (*models.TrackedProduct, error) {
	return s.store.GetProduct(ctx, id)
}

// ListProducts returns all tracked products.
func (s *Service) ListProducts(ctx context.Context) ([]*models.TrackedProduct, error) {
	return s.store.ListProducts(ctx)
}

// GetHistory returns the price history for one tracked product.
func (s *Service) GetHistory(ctx context.Context, id string) (*models.TrackedProduct, []models.PriceEntry, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.store.GetHistory(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return product, history, nil
}

// scrape runs one scrape through the worker pool and unwraps the job result.
func (s *Service) scrape(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	result, err := s.pool.SubmitJob(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.Product == nil {
		return nil, fmt.Errorf("scrape returned no product for %s", url)
	}
	return result.Product, nil
}

// notifyAdded sends the product-added email without blocking the caller.
func (s *Service) notifyAdded(product *models.TrackedProduct, email string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.notifier.NotifyProductAdded(ctx, email, product); err != nil {
			metrics.RecordNotification("failed")
			s.logger.WithFields(logrus.Fields{
				"product_id": product.ID,
				"watcher":    email,
				"error":      err.Error(),
			}).Warn("Product added notification failed")
		}
	}()
}

func countOutcome(results []*CheckResult, outcome CheckOutcome) int {
	n := 0
	for _, r := range results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}
