package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext returns ctx carrying logger. The SDK and the logging transport
// pick it up, so attributes added here tag every outbound call.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}
