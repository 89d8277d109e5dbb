// Package ctxutil provides helpers for interacting with values stored in
// [context.Context] during a procedure run.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/nikvoid/nndb-core/internal/platform/ctxkey"
)

// # Run correlation

// WithRunID returns a new context carrying the procedure run's correlation id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRunID, id)
}

// GetRunID retrieves the run id from the context, or "" if absent.
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRunID).(string)
	return id
}

// # Structured logging

// WithLogger returns a new context carrying the provided logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context, falling back to the
// global default logger if none was attached.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
