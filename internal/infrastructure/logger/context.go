package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is the private key type for values this package stores in a
// context.Context
type contextKey string

const (
	// LoggerKey carries the request- or task-scoped logger
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the HTTP request ID
	RequestIDKey contextKey = "request_id"
	// TaskIDKey carries the sync task ID for logs emitted by a sync worker
	TaskIDKey contextKey = "task_id"
)

// WithContext attaches a logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger attached to the context, or a no-op
// logger when none is attached
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context and returns a logger
// that tags every entry with it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithTaskID stores the sync task ID in the context and returns a logger
// that tags every entry with it. Sync workers call this once at the start
// of a run so repository and SQL logs correlate with the task.
func WithTaskID(ctx context.Context, logger *zap.Logger, taskID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, TaskIDKey, taskID)
	enriched := logger.With(zap.String("task_id", taskID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request ID stored in the context, if any
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetTaskID returns the sync task ID stored in the context, if any
func GetTaskID(ctx context.Context) string {
	if taskID, ok := ctx.Value(TaskIDKey).(string); ok {
		return taskID
	}
	return ""
}
