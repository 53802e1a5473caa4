package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// CustomError represents a custom application error
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Common error constructors
func NewBadRequestError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

func NewTimeoutError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusRequestTimeout,
		Message: message,
	}
}

// Scraping specific errors

// NewFetchBlockedError signals that the target served a bot wall or CAPTCHA
// page instead of content. Retryable later, not immediately.
func NewFetchBlockedError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusTemporaryRedirect,
		Message: "Fetch blocked by bot protection",
		Detail:  detail,
	}
}

// NewFetchFailedError signals a network or HTTP failure after retries.
func NewFetchFailedError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadGateway,
		Message: "Fetch failed",
		Detail:  detail,
	}
}

// NewLLMUnavailableError signals missing credentials or a disabled provider.
// The AI fallback is skipped entirely when this is returned.
func NewLLMUnavailableError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusServiceUnavailable,
		Message: "LLM provider unavailable",
		Detail:  detail,
	}
}

func NewRateLimitError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusTooManyRequests,
		Message: "Rate limit exceeded",
		Detail:  detail,
	}
}

// IsFetchBlocked reports whether err wraps a fetch-blocked CustomError.
func IsFetchBlocked(err error) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == http.StatusTemporaryRedirect
	}
	return false
}

// IsLLMUnavailable reports whether err wraps an LLM-unavailable CustomError.
func IsLLMUnavailable(err error) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == http.StatusServiceUnavailable
	}
	return false
}
