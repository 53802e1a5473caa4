package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/metrics"
	"pricewatch-utils/internal/scraper"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// submitTimeout bounds how long a caller waits for a queue slot before the
// pool reports itself saturated.
const submitTimeout = 5 * time.Second

// JobResult represents the result of a scraping job
type JobResult struct {
	Product   *models.ScrapedProduct
	Error     error
	RequestID string
	Duration  time.Duration
}

// ScrapeJob represents a job to be processed by workers
type ScrapeJob struct {
	ID         string
	URL        string
	Options    *models.ScrapeOptions
	ResultChan chan JobResult
	Context    context.Context
	CreatedAt  time.Time
}

// Worker represents a single worker goroutine
type Worker struct {
	ID       int
	JobChan  chan ScrapeJob
	QuitChan chan bool
	Pool     *WorkerPool
	logger   *logrus.Logger
}

// WorkerPool manages multiple worker goroutines and the job queue
type WorkerPool struct {
	config         *config.Config
	workers        []*Worker
	jobQueue       chan ScrapeJob
	dispatcher     *Dispatcher
	rateLimiter    *RateLimiter
	scraperFactory scraper.ScraperFactory
	logger         *logrus.Logger
	mu             sync.RWMutex
	running        bool
	stats          PoolStats
	statsMu        sync.Mutex
}

// PoolStats tracks worker pool statistics
type PoolStats struct {
	JobsQueued            int64         `json:"jobs_queued"`
	JobsProcessed         int64         `json:"jobs_processed"`
	JobsSuccessful        int64         `json:"jobs_successful"`
	JobsFailed            int64         `json:"jobs_failed"`
	TotalProcessingTime   time.Duration `json:"total_processing_time"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
}

// NewWorkerPool creates a new worker pool instance
func NewWorkerPool(cfg *config.Config, scraperFactory scraper.ScraperFactory) *WorkerPool {
	logger := utils.GetLogger()

	pool := &WorkerPool{
		config:         cfg,
		jobQueue:       make(chan ScrapeJob, cfg.Workers.QueueSize),
		rateLimiter:    NewRateLimiter(cfg),
		scraperFactory: scraperFactory,
		logger:         logger,
	}

	pool.workers = make([]*Worker, cfg.Workers.PoolSize)
	for i := 0; i < cfg.Workers.PoolSize; i++ {
		pool.workers[i] = &Worker{
			ID:       i + 1,
			JobChan:  make(chan ScrapeJob),
			QuitChan: make(chan bool),
			Pool:     pool,
			logger:   logger,
		}
	}

	pool.dispatcher = NewDispatcher(pool.jobQueue, pool.workers)

	logger.WithField("pool_size", cfg.Workers.PoolSize).Info("Worker pool initialized")
	return pool
}

// Start starts the worker pool
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return fmt.Errorf("worker pool is already running")
	}

	wp.logger.Info("Starting worker pool")

	wp.dispatcher.Start()
	for _, worker := range wp.workers {
		go worker.Start()
	}

	wp.running = true
	wp.logger.WithField("workers", len(wp.workers)).Info("Worker pool started successfully")
	return nil
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.running {
		return nil
	}

	wp.logger.Info("Stopping worker pool")

	// Dispatcher first so no new jobs reach workers mid-shutdown
	wp.dispatcher.Stop()
	for _, worker := range wp.workers {
		worker.Stop()
	}
	close(wp.jobQueue)

	wp.running = false
	wp.logger.Info("Worker pool stopped successfully")
	return nil
}

// SubmitJob submits a scraping job to the pool and waits for its result
func (wp *WorkerPool) SubmitJob(ctx context.Context, url string, options *models.ScrapeOptions) (*JobResult, error) {
	if !wp.IsRunning() {
		return nil, fmt.Errorf("worker pool is not running")
	}

	domain := extractDomain(url)
	if !wp.rateLimiter.Allow(domain) {
		return nil, utils.NewRateLimitError(fmt.Sprintf("rate limit exceeded for domain: %s", domain))
	}

	job := ScrapeJob{
		ID:         utils.GenerateRequestID(),
		URL:        url,
		Options:    options,
		ResultChan: make(chan JobResult, 1),
		Context:    ctx,
		CreatedAt:  time.Now(),
	}

	wp.statsMu.Lock()
	wp.stats.JobsQueued++
	wp.statsMu.Unlock()

	select {
	case wp.jobQueue <- job:
		wp.logger.WithFields(logrus.Fields{
			"job_id": job.ID,
			"url":    url,
		}).Info("Job submitted to queue")
	case <-time.After(submitTimeout):
		return nil, fmt.Errorf("job queue is full, request timed out")
	}

	timeout := wp.config.Workers.Timeout
	if options != nil && options.Timeout > 0 {
		timeout = options.Timeout
	}

	select {
	case result := <-job.ResultChan:
		return &result, nil
	case <-time.After(timeout):
		return nil, utils.NewTimeoutError(fmt.Sprintf("job processing timed out after %v", timeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsRunning returns true if the worker pool is running
func (wp *WorkerPool) IsRunning() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.running
}

// GetStats returns a snapshot of current pool statistics
func (wp *WorkerPool) GetStats() PoolStats {
	wp.statsMu.Lock()
	defer wp.statsMu.Unlock()

	stats := wp.stats
	if stats.JobsProcessed > 0 {
		stats.AverageProcessingTime = stats.TotalProcessingTime / time.Duration(stats.JobsProcessed)
	}
	return stats
}

// Start starts the worker goroutine
func (w *Worker) Start() {
	w.logger.WithField("worker_id", w.ID).Info("Worker started")

	for {
		select {
		case job := <-w.JobChan:
			w.processJob(job)
		case <-w.QuitChan:
			w.logger.WithField("worker_id", w.ID).Info("Worker stopping")
			return
		}
	}
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.QuitChan <- true
}

// processJob processes a single scraping job
func (w *Worker) processJob(job ScrapeJob) {
	startTime := time.Now()

	w.logger.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"worker_id": w.ID,
		"url":       job.URL,
	}).Debug("Processing job")

	w.Pool.statsMu.Lock()
	w.Pool.stats.JobsProcessed++
	w.Pool.statsMu.Unlock()

	result := w.scrapeProduct(job)
	result.Duration = time.Since(startTime)

	w.Pool.statsMu.Lock()
	w.Pool.stats.TotalProcessingTime += result.Duration
	if result.Error != nil {
		w.Pool.stats.JobsFailed++
	} else {
		w.Pool.stats.JobsSuccessful++
	}
	w.Pool.statsMu.Unlock()

	engine := "hybrid"
	if job.Options != nil && job.Options.Engine != "" {
		engine = job.Options.Engine
	}
	status := "success"
	if result.Error != nil {
		status = "failure"
		if utils.IsFetchBlocked(result.Error) {
			metrics.FetchBlockedTotal.Inc()
		}
	}
	metrics.RecordScrape(engine, status, result.Duration)
	if result.Product != nil {
		metrics.RecordExtraction(string(result.Product.SourceMethod))
		metrics.RecordPriceResolution(string(result.Product.PriceSource))
	}

	// Non-blocking send: the submitter may have timed out and walked away
	select {
	case job.ResultChan <- result:
		w.logger.WithFields(logrus.Fields{
			"job_id":          job.ID,
			"worker_id":       w.ID,
			"processing_time": result.Duration,
			"success":         result.Error == nil,
		}).Info("Job completed")
	case <-time.After(100 * time.Millisecond):
		w.logger.WithFields(logrus.Fields{
			"job_id":    job.ID,
			"worker_id": w.ID,
		}).Debug("Result channel timeout - client may have disconnected")
	}
}

// scrapeProduct performs the actual scraping work with the worker retry loop
func (w *Worker) scrapeProduct(job ScrapeJob) JobResult {
	result := JobResult{
		RequestID: job.ID,
	}

	engine := "hybrid"
	if job.Options != nil && job.Options.Engine != "" {
		engine = job.Options.Engine
	}

	domain := extractDomain(job.URL)

	productScraper, err := w.Pool.scraperFactory.CreateScraper(engine)
	if err != nil {
		result.Error = fmt.Errorf("failed to create scraper: %w", err)
		w.Pool.rateLimiter.RecordFailure(domain, err)
		return result
	}
	defer productScraper.Cleanup()

	maxRetries := w.Pool.config.Workers.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(logrus.Fields{
				"job_id":    job.ID,
				"worker_id": w.ID,
				"attempt":   attempt + 1,
				"url":       job.URL,
			}).Debug("Retrying scraping job")

			// Linear backoff between attempts
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		product, err := productScraper.ScrapeProduct(job.Context, job.URL, job.Options)
		if err != nil {
			lastErr = err
			w.Pool.rateLimiter.RecordFailure(domain, err)

			w.logger.WithFields(logrus.Fields{
				"job_id":    job.ID,
				"worker_id": w.ID,
				"attempt":   attempt + 1,
				"error":     err.Error(),
			}).Debug("Scraping attempt failed")

			// A block wall outlasts any worker backoff; retrying feeds it
			if utils.IsFetchBlocked(err) {
				break
			}
			continue
		}

		result.Product = product
		w.Pool.rateLimiter.RecordSuccess(domain)

		w.logger.WithFields(logrus.Fields{
			"job_id":       job.ID,
			"worker_id":    w.ID,
			"product_name": product.Name,
			"price":        product.PriceValue(),
			"attempt":      attempt + 1,
		}).Debug("Scraping job completed successfully")

		return result
	}

	result.Error = fmt.Errorf("scraping failed after retries: %w", lastErr)
	return result
}

// extractDomain extracts the domain from a URL for rate limiting
func extractDomain(url string) string {
	return extractDomainFromURL(url)
}
