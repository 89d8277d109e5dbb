// Package ctxkey defines typed context keys shared across the pipeline and
// coordinator packages.
//
// Using an unexported key type prevents collisions with third-party
// packages that might also store values on [context.Context].
package ctxkey

type key string

const (
	// KeyRunID is the context key for the per-procedure-invocation
	// correlation id minted by the coordinator.
	KeyRunID key = "run_id"

	// KeyLogger is the context key for the per-run [*log/slog.Logger].
	KeyLogger key = "logger"
)
