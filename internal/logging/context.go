package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	runIDKey contextKey = iota
	sourceIDKey
	filmIDKey
	correlationIDKey
)

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func WithSourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sourceIDKey, id)
}

func WithFilmID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, filmIDKey, id)
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	keys := []struct {
		key   contextKey
		field string
	}{
		{runIDKey, FieldRunID},
		{sourceIDKey, FieldSourceID},
		{filmIDKey, FieldFilmID},
		{correlationIDKey, FieldCorrelationID},
	}
	var fields []slog.Attr
	for _, k := range keys {
		if v, ok := ctx.Value(k.key).(string); ok && v != "" {
			fields = append(fields, slog.String(k.field, v))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
