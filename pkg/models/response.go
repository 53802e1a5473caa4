package models

import "time"

// ScrapeResponse represents the response from a scrape request
type ScrapeResponse struct {
	Success        bool            `json:"success"`
	Product        *ScrapedProduct `json:"product,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time"`
	Engine         string          `json:"engine_used"`
	RequestID      string          `json:"request_id"`
}

// TrackResponse represents the response from a tracker ingest request
type TrackResponse struct {
	Success   bool            `json:"success"`
	Product   *TrackedProduct `json:"product,omitempty"`
	Baseline  *PriceEntry     `json:"baseline,omitempty"`
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// HistoryResponse represents a product's price history
type HistoryResponse struct {
	Success   bool            `json:"success"`
	Product   *TrackedProduct `json:"product,omitempty"`
	History   []PriceEntry    `json:"history"`
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
