package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/models"
)

func callbackConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Callback.Enabled = true
	cfg.Callback.URL = url
	cfg.Callback.Timeout = 2 * time.Second
	cfg.Callback.MaxRetries = 2
	return cfg
}

func samplePayload() *Payload {
	product := &models.ScrapedProduct{Name: "Widget", Currency: "USD"}
	product.SetPrice(19.99)
	return &Payload{
		ProcessID:      "proc-123",
		Status:         "SUCCESS",
		Operation:      "scrape",
		Product:        product,
		ProcessingTime: "1.2s",
		Timestamp:      time.Now().UTC(),
	}
}

func TestSendDeliversPayload(t *testing.T) {
	var received Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(callbackConfig(server.URL))

	require.NoError(t, client.Send(context.Background(), samplePayload()))
	assert.Equal(t, "proc-123", received.ProcessID)
	assert.Equal(t, "SUCCESS", received.Status)
	require.NotNil(t, received.Product)
	assert.Equal(t, 19.99, received.Product.PriceValue())
}

func TestSendRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(callbackConfig(server.URL))

	require.NoError(t, client.Send(context.Background(), samplePayload()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestSendGivesUpAfterRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(callbackConfig(server.URL))

	err := client.Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "MaxRetries 2 means three attempts total")
}

func TestSendDisabled(t *testing.T) {
	cfg := callbackConfig("http://127.0.0.1:1")
	cfg.Callback.Enabled = false
	client := NewClient(cfg)

	assert.NoError(t, client.Send(context.Background(), samplePayload()))

	cfg = callbackConfig("")
	client = NewClient(cfg)
	assert.NoError(t, client.Send(context.Background(), samplePayload()))
	assert.False(t, client.Enabled())
}

func TestSendHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(callbackConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Send(ctx, samplePayload())
	assert.Error(t, err)
}
