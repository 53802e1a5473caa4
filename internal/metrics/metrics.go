package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScrapeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_scrape_requests_total",
			Help: "Total scrape requests by engine and outcome",
		},
		[]string{"engine", "status"},
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricewatch_scrape_duration_seconds",
			Help:    "Scrape request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_extractions_total",
			Help: "Product extractions by source method",
		},
		[]string{"method"},
	)

	FetchBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_fetch_blocked_total",
			Help: "Fetches rejected by bot protection",
		},
	)

	PriceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_price_checks_total",
			Help: "Price re-check outcomes",
		},
		[]string{"outcome"},
	)

	TrackedProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_tracked_products",
			Help: "Number of products currently tracked",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_notifications_total",
			Help: "Price change notifications by delivery status",
		},
		[]string{"status"},
	)

	AIExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_ai_extractions_total",
			Help: "AI extraction requests by outcome",
		},
		[]string{"outcome"},
	)

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_fetch_retries_total",
			Help: "Fetch attempts retried after a transient failure",
		},
	)

	PriceResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_price_resolutions_total",
			Help: "Resolved prices by originating source",
		},
		[]string{"source"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ScrapeRequestsTotal,
			ScrapeDuration,
			ExtractionsTotal,
			FetchBlockedTotal,
			PriceChecksTotal,
			TrackedProducts,
			NotificationsTotal,
			AIExtractionsTotal,
			FetchRetriesTotal,
			PriceResolutionsTotal,
		)
	})
}

// Handler returns the prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScrape records one scrape request outcome with its duration.
func RecordScrape(engine, status string, duration time.Duration) {
	ScrapeRequestsTotal.WithLabelValues(engine, status).Inc()
	ScrapeDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordExtraction records which pipeline stage produced the product data.
func RecordExtraction(method string) {
	if method == "" {
		method = "none"
	}
	ExtractionsTotal.WithLabelValues(method).Inc()
}

// RecordPriceCheck records the outcome of a tracker re-check:
// changed, unchanged, skipped or failed.
func RecordPriceCheck(outcome string) {
	PriceChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

// RecordAIExtraction records one AI extraction request:
// cache_hit, success or fallback.
func RecordAIExtraction(outcome string) {
	AIExtractionsTotal.WithLabelValues(outcome).Inc()
}

// RecordPriceResolution records which source the final price came from.
func RecordPriceResolution(source string) {
	if source == "" {
		source = "none"
	}
	PriceResolutionsTotal.WithLabelValues(source).Inc()
}
