package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/utils"
)

// fetchConfig builds a config with zeroed delays so tests run without sleeping
func fetchConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.MaxRetries = 3
	cfg.Scraper.RequestTimeout = 5 * time.Second
	return cfg
}

const productPage = `<html><head><title>Widget X</title></head>
<body><h1>Widget X</h1><span class="price">$19.99</span></body></html>`

func TestFetcherFetchSuccess(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	result, err := f.Fetch(context.Background(), server.URL+"/p/1")
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "Widget X")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.NotEmpty(t, gotAgent)
}

func TestFetcherSendsBrowserHeaders(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, headers.Get("Accept"), "text/html")
	assert.Equal(t, "en-US,en;q=0.9", headers.Get("Accept-Language"))
	assert.Equal(t, "1", headers.Get("Upgrade-Insecure-Requests"))
}

func TestFetcherRetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	result, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetcherAllAttemptsFail(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.False(t, utils.IsFetchBlocked(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetcherBlockedPageStopsRetrying(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`<html><body>Enter the characters you see below</body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, utils.IsFetchBlocked(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "a block wall should not be retried")
}

func TestFetcherInvalidURL(t *testing.T) {
	f := NewFetcher(fetchConfig())
	_, err := f.Fetch(context.Background(), "not a url")
	require.Error(t, err)
}

func TestFetcherContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	f := NewFetcher(fetchConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, server.URL)
	assert.Error(t, err)
}

func TestAmazonCookies(t *testing.T) {
	cookies := amazonCookies()
	byName := make(map[string]string, len(cookies))
	for _, c := range cookies {
		byName[c.Name] = c.Value
	}

	assert.Equal(t, "USD", byName["i18n-prefs"])
	assert.Regexp(t, regexp.MustCompile(`^\d{3}-\d{7}-\d{7}$`), byName["session-id"])
	assert.Regexp(t, regexp.MustCompile(`^\d{3}-\d{7}-\d{7}$`), byName["ubid-acbus"])
}

func TestRandomDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), randomDuration(0, 0))
	assert.Equal(t, time.Second, randomDuration(time.Second, time.Second))

	for i := 0; i < 20; i++ {
		d := randomDuration(time.Millisecond, 10*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Millisecond)
		assert.Less(t, d, 10*time.Millisecond)
	}
}
