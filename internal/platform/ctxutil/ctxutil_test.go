package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/internal/platform/ctxutil"
)

// TestContext_RunID verifies that run ids can be injected and retrieved.
func TestContext_RunID(t *testing.T) {
	ctx := context.Background()
	runID := "test-run-id"

	assert.Empty(t, ctxutil.GetRunID(ctx))

	ctx = ctxutil.WithRunID(ctx, runID)
	assert.Equal(t, runID, ctxutil.GetRunID(ctx))
}

// TestContext_Logger verifies that a custom logger can be stored in context.
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}
