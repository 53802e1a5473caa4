package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricewatch-utils/internal/callback"
	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/logging"
	"pricewatch-utils/internal/logging/types"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/pkg/models"
)

// Task manager configuration constants
const (
	// Default configuration values
	DefaultMaxWorkers   = 10
	DefaultMaxQueueSize = 100

	// Minimum configuration values to prevent misconfiguration
	MinWorkers   = 1
	MinQueueSize = 1

	// Maximum configuration values for safety
	MaxWorkers   = 1000
	MaxQueueSize = 10000

	// Fallbacks when the background_tasks config section is incomplete
	DefaultTaskTimeout     = 5 * time.Minute
	DefaultCleanupInterval = 1 * time.Hour
	DefaultMaxTaskAge      = 24 * time.Hour
)

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitScrapeTask submits a scrape task for background processing
	SubmitScrapeTask(ctx context.Context, processID string, request models.ScrapeRequest, poolManager *workers.PoolManager) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists all active tasks (for monitoring)
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	config       *config.Config
	store        TaskStore
	logger       *TaskCompletionLogger
	appLogger    types.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	running      bool
	taskChan     chan *TaskExecution
	maxWorkers   int
	maxQueueSize int
	taskTimeout  time.Duration
}

// TaskExecution represents a task execution context
type TaskExecution struct {
	ProcessID     string
	Type          TaskType
	Context       context.Context
	Cancel        context.CancelFunc
	ExecuteFunc   func(context.Context) (*TaskResult, error)
	CompletedChan chan *TaskResult
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	// Validate and set worker pool size
	maxWorkers = cfg.BackgroundTasks.MaxConcurrentTasks
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers < MinWorkers {
		return 0, 0, fmt.Errorf("task worker count (%d) is below minimum (%d)", maxWorkers, MinWorkers)
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("task worker count (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	// Validate and set queue size
	maxQueueSize = cfg.BackgroundTasks.MaxQueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize < MinQueueSize {
		return 0, 0, fmt.Errorf("task queue size (%d) is below minimum (%d)", maxQueueSize, MinQueueSize)
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("task queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager. Task completions are delivered
// to the configured webhook callback URL when one is set.
func NewTaskManager(cfg *config.Config) *TaskManagerImpl {
	logger := logging.GetGlobalLogger()

	// Validate configuration and get safe values
	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		// Log validation error and fall back to defaults
		logger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}

	taskTimeout := cfg.BackgroundTasks.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}

	logger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
		"task_timeout":   taskTimeout.String(),
		"using_defaults": err != nil,
	})

	callbackClient := callback.NewClient(cfg)

	return &TaskManagerImpl{
		config:       cfg,
		store:        NewInMemoryTaskStore(),
		logger:       NewTaskCompletionLoggerWithCallback(callbackClient, callbackClient.Enabled()),
		appLogger:    logger,
		maxWorkers:   maxWorkers,
		maxQueueSize: maxQueueSize,
		taskTimeout:  taskTimeout,
		taskChan:     make(chan *TaskExecution, maxQueueSize),
	}
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	// Start worker goroutines
	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	// Start cleanup goroutine
	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop stops the task manager gracefully
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", map[string]interface{}{})

	// Cancel context to signal workers to stop
	tm.cancel()

	// Close task channel
	close(tm.taskChan)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", map[string]interface{}{})
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", map[string]interface{}{})
	}

	tm.running = false
	return nil
}

// SubmitScrapeTask submits a scrape task for background processing
func (tm *TaskManagerImpl) SubmitScrapeTask(ctx context.Context, processID string, request models.ScrapeRequest, poolManager *workers.PoolManager) error {
	if !tm.IsHealthy() {
		return fmt.Errorf("task manager is not healthy")
	}

	// Create task result
	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeScrape,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"url":    request.URL,
			"engine": getEngineFromOptions(request.Options),
		},
	}

	// Store initial task result
	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	// Log task acceptance
	tm.logger.LogTaskAccepted(processID, TaskTypeScrape)

	// Derived context bounds the task independently of the HTTP request
	// that submitted it.
	taskCtx, cancelFunc := context.WithTimeout(tm.ctx, tm.taskTimeout)
	execution := &TaskExecution{
		ProcessID: processID,
		Type:      TaskTypeScrape,
		Context:   taskCtx,
		Cancel:    cancelFunc,
		ExecuteFunc: func(execCtx context.Context) (*TaskResult, error) {
			return tm.executeScrapeTask(execCtx, processID, request, poolManager)
		},
		CompletedChan: make(chan *TaskResult, 1),
	}

	// Submit to worker pool
	select {
	case tm.taskChan <- execution:
		return nil
	case <-ctx.Done():
		cancelFunc()
		return ctx.Err()
	default:
		cancelFunc()
		return fmt.Errorf("task queue is full")
	}
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all active tasks (for monitoring)
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	tm.appLogger.Info("Task worker started", map[string]interface{}{
		"worker_id": workerID,
	})

	for {
		select {
		case <-tm.ctx.Done():
			tm.appLogger.Info("Task worker stopping", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				tm.appLogger.Info("Task channel closed, worker stopping", map[string]interface{}{
					"worker_id": workerID,
				})
				return
			}

			tm.processTask(workerID, task)
		}
	}
}

// processTask processes a single task
func (tm *TaskManagerImpl) processTask(workerID int, task *TaskExecution) {
	startTime := time.Now()

	tm.appLogger.Info("Processing task", map[string]interface{}{
		"worker_id":  workerID,
		"process_id": task.ProcessID,
		"task_type":  task.Type,
	})

	// Update task status to processing
	if err := tm.updateTaskStatus(task.ProcessID, TaskStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Log task start
	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	// Execute the task
	result, err := task.ExecuteFunc(task.Context)
	processingTime := time.Since(startTime)

	if err != nil {
		// Task failed
		tm.appLogger.Error("Task execution failed", map[string]interface{}{
			"worker_id":       workerID,
			"process_id":      task.ProcessID,
			"task_type":       task.Type,
			"processing_time": processingTime,
			"error":           err.Error(),
		})

		// Retrieve existing task result to preserve original CreatedAt
		existingResult, getErr := tm.store.Get(task.Context, task.ProcessID)
		if getErr != nil {
			tm.appLogger.Error("Failed to retrieve existing task result for failure update", map[string]interface{}{
				"error": getErr.Error(),
			})
			result = &TaskResult{
				ProcessID:      task.ProcessID,
				Type:           task.Type,
				Status:         TaskStatusFailure,
				Error:          err.Error(),
				CreatedAt:      time.Now(),
				ProcessingTime: &processingTime,
			}
		} else {
			existingResult.Status = TaskStatusFailure
			existingResult.Error = err.Error()
			existingResult.ProcessingTime = &processingTime
			result = existingResult
		}

		tm.logger.LogTaskError(task.ProcessID, task.Type, err)
	} else {
		// Task succeeded
		tm.appLogger.Info("Task execution completed successfully", map[string]interface{}{
			"worker_id":       workerID,
			"process_id":      task.ProcessID,
			"task_type":       task.Type,
			"processing_time": processingTime,
		})

		result.Status = TaskStatusSuccess
		result.ProcessingTime = &processingTime
		completedAt := time.Now()
		result.CompletedAt = &completedAt

		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	}

	// Store the final result
	if err := tm.store.Update(task.Context, result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Log structured completion to stdout and fire the webhook callback
	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cancel the task context to prevent context leaks
	if task.Cancel != nil {
		task.Cancel()
	}
}

// updateTaskStatus updates the status of a task
func (tm *TaskManagerImpl) updateTaskStatus(processID string, status TaskStatus) error {
	result, err := tm.store.Get(context.Background(), processID)
	if err != nil {
		return err
	}

	result.Status = status
	return tm.store.Update(context.Background(), result)
}

// cleanupRoutine periodically cleans up old task results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	interval := tm.config.BackgroundTasks.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	maxAge := tm.config.BackgroundTasks.MaxTaskAge
	if maxAge <= 0 {
		maxAge = DefaultMaxTaskAge
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), maxAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// executeScrapeTask executes a scrape task in the background
func (tm *TaskManagerImpl) executeScrapeTask(ctx context.Context, processID string, request models.ScrapeRequest, poolManager *workers.PoolManager) (*TaskResult, error) {
	startTime := time.Now()

	// Retrieve the existing task result to preserve original CreatedAt
	existingResult, err := tm.store.Get(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve existing task result: %w", err)
	}

	// Execute the scraping job using the shared worker pool
	result, err := poolManager.SubmitJob(ctx, request.URL, request.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to submit scraping job: %w", err)
	}

	if result.Error != nil {
		return nil, result.Error
	}

	if result.Product == nil {
		return nil, fmt.Errorf("scraping completed but no product data was returned")
	}

	engine := getEngineFromOptions(request.Options)
	taskData := &ScrapeTaskData{
		Product: result.Product,
		Engine:  engine,
		UsedAI:  result.Product.SourceMethod == models.SourceMethodAI,
	}

	// Update the existing task result with success data
	processingTime := time.Since(startTime)
	existingResult.Status = TaskStatusSuccess
	existingResult.Data = taskData
	existingResult.ProcessingTime = &processingTime
	existingResult.Metadata = map[string]interface{}{
		"url":    request.URL,
		"engine": engine,
	}

	return existingResult, nil
}

// getEngineFromOptions extracts the engine from scrape options
func getEngineFromOptions(options *models.ScrapeOptions) string {
	if options == nil {
		return "hybrid"
	}
	if options.Engine == "" {
		return "hybrid"
	}
	return options.Engine
}
