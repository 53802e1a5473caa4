package background

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pricewatch-utils/internal/callback"
	"pricewatch-utils/internal/logging"
	"pricewatch-utils/internal/logging/types"
)

// TaskCompletionLogger handles structured logging for task completion
type TaskCompletionLogger struct {
	logger          types.Logger
	callbackClient  *callback.Client
	callbackEnabled bool
}

// NewTaskCompletionLogger creates a new task completion logger
func NewTaskCompletionLogger() *TaskCompletionLogger {
	return &TaskCompletionLogger{
		logger: logging.GetGlobalLogger(),
	}
}

// NewTaskCompletionLoggerWithCallback creates a new task completion logger
// that also delivers results to the webhook callback client
func NewTaskCompletionLoggerWithCallback(callbackClient *callback.Client, enabled bool) *TaskCompletionLogger {
	return &TaskCompletionLogger{
		logger:          logging.GetGlobalLogger(),
		callbackClient:  callbackClient,
		callbackEnabled: enabled,
	}
}

// TaskCompletionLog represents the structured log entry for task completion
type TaskCompletionLog struct {
	ProcessID      string                 `json:"processId"`
	Status         string                 `json:"status"`
	Data           interface{}            `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Operation      string                 `json:"operation"`
	ProcessingTime string                 `json:"processing_time"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// LogTaskCompletion logs task completion to stdout in structured JSON format
// and sends the webhook callback when one is configured
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) error {
	logEntry := TaskCompletionLog{
		ProcessID:      result.ProcessID,
		Status:         string(result.Status),
		Data:           result.Data,
		Error:          result.Error,
		Timestamp:      time.Now(),
		Operation:      string(result.Type),
		ProcessingTime: formatProcessingTime(result.ProcessingTime),
		Metadata:       result.Metadata,
	}

	jsonData, err := json.Marshal(logEntry)
	if err != nil {
		l.logger.Error("Failed to marshal task completion log", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to marshal task completion log: %w", err)
	}

	// Print to stdout (this will be captured by container orchestrators)
	fmt.Println(string(jsonData))

	l.logger.Info("Background task completed", map[string]interface{}{
		"process_id":      result.ProcessID,
		"status":          result.Status,
		"operation":       result.Type,
		"processing_time": formatProcessingTime(result.ProcessingTime),
	})

	// Send the webhook callback if enabled and a client is available
	if l.callbackEnabled && l.callbackClient != nil {
		if err := l.sendTaskCallback(context.Background(), result); err != nil {
			l.logger.Error("Failed to send task callback", map[string]interface{}{
				"process_id": result.ProcessID,
				"error":      err.Error(),
			})
			// Logging succeeded, so a failed callback does not fail the task
		}
	}

	return nil
}

// LogTaskStart logs when a task starts processing
func (l *TaskCompletionLogger) LogTaskStart(processID string, taskType TaskType) {
	l.logger.Info("Background task started", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "PROCESSING",
	})
}

// LogTaskAccepted logs when a task is accepted for processing
func (l *TaskCompletionLogger) LogTaskAccepted(processID string, taskType TaskType) {
	l.logger.Info("Background task accepted", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "ACCEPTED",
	})
}

// LogTaskError logs task errors during processing
func (l *TaskCompletionLogger) LogTaskError(processID string, taskType TaskType, err error) {
	l.logger.Error("Background task failed", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "FAILURE",
		"error":      err.Error(),
	})
}

// LogTaskSuccess logs successful task completion
func (l *TaskCompletionLogger) LogTaskSuccess(processID string, taskType TaskType, processingTime time.Duration) {
	l.logger.Info("Background task completed successfully", map[string]interface{}{
		"process_id":      processID,
		"operation":       taskType,
		"status":          "SUCCESS",
		"processing_time": processingTime,
	})
}

// sendTaskCallback delivers the task result to the configured webhook
func (l *TaskCompletionLogger) sendTaskCallback(ctx context.Context, result *TaskResult) error {
	payload := &callback.Payload{
		ProcessID:      result.ProcessID,
		Status:         string(result.Status),
		Operation:      string(result.Type),
		Error:          result.Error,
		ProcessingTime: formatProcessingTime(result.ProcessingTime),
		Timestamp:      time.Now(),
	}

	if data, ok := result.Data.(*ScrapeTaskData); ok {
		payload.Product = data.Product
	}

	return l.callbackClient.Send(ctx, payload)
}

func formatProcessingTime(d *time.Duration) string {
	if d == nil {
		return "0s"
	}
	return d.String()
}
