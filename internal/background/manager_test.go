package background

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/pkg/models"
)

const productPageHTML = `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Sony WH-1000XM5", "brand": {"name": "Sony"},
 "offers": {"price": "348.00", "priceCurrency": "USD", "availability": "https://schema.org/InStock"}}
</script>
</head><body><h1>Sony WH-1000XM5</h1></body></html>`

func backgroundConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workers.PoolSize = 2
	cfg.Workers.QueueSize = 8
	cfg.Workers.RateLimit = 600
	cfg.Workers.Timeout = 10 * time.Second
	cfg.Workers.MaxRetries = 0
	cfg.Scraper.MaxRetries = 0
	cfg.Scraper.RequestTimeout = 5 * time.Second
	cfg.BackgroundTasks.MaxConcurrentTasks = 2
	cfg.BackgroundTasks.MaxQueueSize = 4
	cfg.BackgroundTasks.TaskTimeout = 10 * time.Second
	return cfg
}

func startedPoolManager(t *testing.T, cfg *config.Config) *workers.PoolManager {
	t.Helper()

	pm := workers.NewPoolManager(cfg, nil)
	require.NoError(t, pm.Initialize())
	t.Cleanup(func() {
		_ = pm.Shutdown()
	})
	return pm
}

func startedTaskManager(t *testing.T, cfg *config.Config) *TaskManagerImpl {
	t.Helper()

	tm := NewTaskManager(cfg)
	require.NoError(t, tm.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tm.Stop(ctx)
	})
	return tm
}

func staticScrapeRequest(url string) models.ScrapeRequest {
	return models.ScrapeRequest{
		URL:     url,
		Options: &models.ScrapeOptions{Engine: "static"},
	}
}

func TestValidateTaskManagerConfig(t *testing.T) {
	tests := []struct {
		name        string
		workers     int
		queueSize   int
		wantWorkers int
		wantQueue   int
		wantErr     bool
	}{
		{name: "zero values fall back to defaults", workers: 0, queueSize: 0, wantWorkers: DefaultMaxWorkers, wantQueue: DefaultMaxQueueSize},
		{name: "configured values are used", workers: 5, queueSize: 50, wantWorkers: 5, wantQueue: 50},
		{name: "worker count above maximum is rejected", workers: 2000, queueSize: 50, wantErr: true},
		{name: "queue size above maximum is rejected", workers: 5, queueSize: 20000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.BackgroundTasks.MaxConcurrentTasks = tt.workers
			cfg.BackgroundTasks.MaxQueueSize = tt.queueSize

			gotWorkers, gotQueue, err := validateTaskManagerConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWorkers, gotWorkers)
			assert.Equal(t, tt.wantQueue, gotQueue)
		})
	}
}

func TestTaskManagerLifecycle(t *testing.T) {
	cfg := backgroundConfig()
	tm := NewTaskManager(cfg)

	assert.False(t, tm.IsHealthy())

	require.NoError(t, tm.Start(context.Background()))
	assert.True(t, tm.IsHealthy())

	err := tm.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tm.Stop(ctx))
	assert.False(t, tm.IsHealthy())
}

func TestSubmitScrapeTaskRequiresRunningManager(t *testing.T) {
	cfg := backgroundConfig()
	tm := NewTaskManager(cfg)
	pm := startedPoolManager(t, cfg)

	err := tm.SubmitScrapeTask(context.Background(), "proc-1", staticScrapeRequest("https://store.example.com/p/1"), pm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not healthy")
}

func TestScrapeTaskEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := backgroundConfig()
	pm := startedPoolManager(t, cfg)
	tm := startedTaskManager(t, cfg)

	require.NoError(t, tm.SubmitScrapeTask(context.Background(), "proc-e2e", staticScrapeRequest(srv.URL+"/headphones"), pm))

	require.Eventually(t, func() bool {
		status, err := tm.GetTaskStatus(context.Background(), "proc-e2e")
		return err == nil && status == TaskStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)

	result, err := tm.GetTaskResult(context.Background(), "proc-e2e")
	require.NoError(t, err)

	data, ok := result.Data.(*ScrapeTaskData)
	require.True(t, ok, "task data should be scrape task data")
	require.NotNil(t, data.Product)
	assert.Equal(t, "Sony WH-1000XM5", data.Product.Name)
	assert.Equal(t, "static", data.Engine)
	assert.False(t, data.UsedAI)

	require.NotNil(t, result.ProcessingTime)
	assert.Greater(t, *result.ProcessingTime, time.Duration(0))
	require.NotNil(t, result.CompletedAt)

	tasks, err := tm.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestScrapeTaskFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := backgroundConfig()
	pm := startedPoolManager(t, cfg)
	tm := startedTaskManager(t, cfg)

	require.NoError(t, tm.SubmitScrapeTask(context.Background(), "proc-fail", staticScrapeRequest(srv.URL+"/missing"), pm))

	require.Eventually(t, func() bool {
		status, err := tm.GetTaskStatus(context.Background(), "proc-fail")
		return err == nil && status == TaskStatusFailure
	}, 5*time.Second, 20*time.Millisecond)

	result, err := tm.GetTaskResult(context.Background(), "proc-fail")
	require.NoError(t, err)
	assert.Contains(t, result.Error, "scraping failed after retries")
	require.NotNil(t, result.ProcessingTime)
}

func TestScrapeTaskQueueFull(t *testing.T) {
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()
	defer close(gate)

	cfg := backgroundConfig()
	cfg.BackgroundTasks.MaxConcurrentTasks = 1
	cfg.BackgroundTasks.MaxQueueSize = 1
	pm := startedPoolManager(t, cfg)
	tm := startedTaskManager(t, cfg)

	require.NoError(t, tm.SubmitScrapeTask(context.Background(), "proc-slow", staticScrapeRequest(srv.URL+"/slow"), pm))

	// Wait until the single worker has taken the first task off the queue.
	require.Eventually(t, func() bool {
		status, err := tm.GetTaskStatus(context.Background(), "proc-slow")
		return err == nil && status == TaskStatusProcessing
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, tm.SubmitScrapeTask(context.Background(), "proc-queued", staticScrapeRequest(srv.URL+"/queued"), pm))

	err := tm.SubmitScrapeTask(context.Background(), "proc-overflow", staticScrapeRequest(srv.URL+"/overflow"), pm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task queue is full")
}

func TestTaskCompletionWebhook(t *testing.T) {
	type webhookBody struct {
		ProcessID string `json:"process_id"`
		Status    string `json:"status"`
		Operation string `json:"operation"`
		Product   struct {
			Name string `json:"name"`
		} `json:"product"`
	}

	received := make(chan webhookBody, 1)
	cbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body webhookBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer cbSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := backgroundConfig()
	cfg.Callback.Enabled = true
	cfg.Callback.URL = cbSrv.URL
	cfg.Callback.Timeout = 2 * time.Second
	cfg.Callback.MaxRetries = 1
	pm := startedPoolManager(t, cfg)
	tm := startedTaskManager(t, cfg)

	require.NoError(t, tm.SubmitScrapeTask(context.Background(), "proc-hook", staticScrapeRequest(srv.URL+"/headphones"), pm))

	select {
	case body := <-received:
		assert.Equal(t, "proc-hook", body.ProcessID)
		assert.Equal(t, string(TaskStatusSuccess), body.Status)
		assert.Equal(t, string(TaskTypeScrape), body.Operation)
		assert.Equal(t, "Sony WH-1000XM5", body.Product.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion webhook")
	}
}
