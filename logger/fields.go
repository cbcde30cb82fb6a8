package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across psq.
// Use these constants instead of raw strings to keep log output greppable.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldComponent = "component"

	// ExecuteQuery
	FieldQuery      = "query"
	FieldPrompts    = "prompts"
	FieldMaxRows    = "maxrows"
	FieldSecurity   = "security"
	FieldURL        = "url"
	FieldStatus     = "status"
	FieldRowCount   = "row_count"
	FieldBodyBytes  = "body_bytes"
	FieldDurationMS = "duration_ms"

	// Auth (presence only; never log the secrets themselves)
	FieldBasicAuth = "basic_auth"
	FieldPSToken   = "ps_token"
	FieldTLSVerify = "tls_verify"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Files
	FieldFile   = "file"
	FieldFormat = "format"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run ID stored by WithRunID, or ""
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns base with fields extracted from context.
// A nil base falls back to the global Logger.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	client, err := peoplesoft.NewClient(peoplesoft.Config{
//	    BaseURL: baseURL,
//	    Logger:  logger.ComponentLogger("peoplesoft"),
//	})
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
