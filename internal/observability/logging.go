// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging bool
	EnableHubLogging  bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging: false,
	EnableHubLogging:  true,
}

// SetLogger replaces the logger used by the repo and hub loggers.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	GlobalLogger = &Logger{Logger: l}
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, msg, operation string, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, msg, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "repository create", "create", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "repository delete", "delete", fields)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "repository update", "update", fields)
}

// LogError logs a repository error. Errors are always logged.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// HubLogger provides structured logging for realtime hub operations.
type HubLogger struct {
	hubName string
}

// NewHubLogger creates a new HubLogger for the given hub.
func NewHubLogger(hubName string) *HubLogger {
	return &HubLogger{hubName: hubName}
}

// LogSubscribe logs a new subscription.
func (l *HubLogger) LogSubscribe(ctx context.Context, recipientID string, sessions int) {
	if !Config.EnableHubLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "realtime subscribed",
		slog.String("hub", l.hubName),
		slog.String("recipient_id", recipientID),
		slog.Int("sessions", sessions),
	)
}

// LogUnsubscribe logs a removed subscription.
func (l *HubLogger) LogUnsubscribe(ctx context.Context, recipientID, reason string) {
	if !Config.EnableHubLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "realtime unsubscribed",
		slog.String("hub", l.hubName),
		slog.String("recipient_id", recipientID),
		slog.String("reason", reason),
	)
}

// LogError logs a realtime delivery error.
func (l *HubLogger) LogError(ctx context.Context, recipientID string, err error, eventType string) {
	GlobalLogger.ErrorContext(ctx, "realtime error",
		slog.String("hub", l.hubName),
		slog.String("recipient_id", recipientID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogLifecycle logs a hub lifecycle event.
func (l *HubLogger) LogLifecycle(ctx context.Context, event string, fields map[string]interface{}) {
	if !Config.EnableHubLogging {
		return
	}
	attrs := []any{
		slog.String("hub", l.hubName),
		slog.String("event", event),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "realtime lifecycle", attrs...)
}
