package ports

import "context"

// Logger is the structured logging contract used across the application.
// Implementations live in internal/adapters/logger; core packages only see
// this interface. Fields are optional key/value maps attached to the entry.
type Logger interface {
	// Debug logs fine-grained diagnostic detail.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs normal operational events.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs recoverable problems worth surfacing.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs a failure together with its error value.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
