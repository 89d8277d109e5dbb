/*
Package apperr defines the centralized error-kind framework for the
ingestion core, mapping spec.md §7's error table to a single typed error.

Architecture:

  - AppError: a struct carrying a machine-readable Kind, a message, and an
    optional Cause for server-side logging.
  - Storage errors are classified into an [AppError] by dberr.Wrap, and the
    scan and migration paths use the file and migration kinds; other
    components (fetchers, parsers, the coordinator) return plain wrapped
    errors.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error classification, one per row of spec.md §7.
type Kind string

const (
	KindFileUnreadable      Kind = "FILE_UNREADABLE"
	KindDecodeFailure       Kind = "DECODE_FAILURE"
	KindParserMismatch      Kind = "PARSER_MISMATCH"
	KindStorageError        Kind = "STORAGE_ERROR"
	KindDuplicateHash       Kind = "DUPLICATE_HASH"
	KindFetcherUnavailable  Kind = "FETCHER_UNAVAILABLE"
	KindFetcherNotSupported Kind = "FETCHER_NOT_SUPPORTED"
	KindFetcherFailure      Kind = "FETCHER_FAILURE"
	KindBusy                Kind = "BUSY"
	KindMigrationChecksum   Kind = "MIGRATION_CHECKSUM_MISMATCH"
	KindMigrationBreak      Kind = "MIGRATION_PROCEDURE_BREAK"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalid             Kind = "INVALID"
	KindConflict            Kind = "CONFLICT"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the ingestion core.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *AppError {
	return &AppError{Kind: kind, Message: msg, Cause: cause}
}

// # Filesystem / decode errors (per-file log-and-skip policy)

// FileUnreadable wraps a filesystem read failure. Policy: per-file log and skip.
func FileUnreadable(path string, cause error) *AppError {
	return newErr(KindFileUnreadable, "could not read "+path, cause)
}

// DecodeFailure wraps an image-decode failure. Policy: admit broken=true, no signature.
func DecodeFailure(path string, cause error) *AppError {
	return newErr(KindDecodeFailure, "could not decode "+path, cause)
}

// ParserMismatch indicates no specific parser matched. Not an error condition
// by itself — callers fall back to the passthrough parser.
func ParserMismatch(path string) *AppError {
	return newErr(KindParserMismatch, "no specific parser matched "+path, nil)
}

// # Storage errors

// StorageError wraps a transactional storage failure.
func StorageError(action string, cause error) *AppError {
	return newErr(KindStorageError, "storage operation failed: "+action, cause)
}

// DuplicateHash indicates dedupe found the content hash already admitted.
func DuplicateHash(hash string) *AppError {
	return newErr(KindDuplicateHash, "duplicate content hash "+hash, nil)
}

// NotFound creates a not-found [AppError] for a named resource.
func NotFound(resource string) *AppError {
	return newErr(KindNotFound, resource+" not found", nil)
}

// Invalid creates an [AppError] for semantically invalid input.
func Invalid(msg string) *AppError {
	return newErr(KindInvalid, msg, nil)
}

// Conflict creates an [AppError] for a unique-constraint-style violation.
func Conflict(msg string) *AppError {
	return newErr(KindConflict, msg, nil)
}

// # Fetcher errors

// FetcherUnavailable indicates missing credentials; no FetchStatus row is written.
func FetcherUnavailable(fetcher string) *AppError {
	return newErr(KindFetcherUnavailable, fetcher+" is unavailable (missing credentials)", nil)
}

// FetcherNotSupported indicates the filename didn't match the fetcher's pattern.
func FetcherNotSupported(fetcher string) *AppError {
	return newErr(KindFetcherNotSupported, fetcher+" does not support this element", nil)
}

// FetcherFailure wraps a network/HTTP failure from a fetcher call.
func FetcherFailure(fetcher string, cause error) *AppError {
	return newErr(KindFetcherFailure, fetcher+" fetch failed", cause)
}

// # Coordinator errors

// Busy indicates a procedure is already running; callers should no-op immediately.
func Busy(procedure string) *AppError {
	return newErr(KindBusy, procedure+" is already running", nil)
}

// # Migration errors (fatal at startup)

// MigrationChecksumMismatch indicates an applied migration's checksum changed.
func MigrationChecksumMismatch(version string) *AppError {
	return newErr(KindMigrationChecksum, "migration "+version+" checksum mismatch", nil)
}

// MigrationProcedureBreak indicates an embedded procedure requested operator
// input; the transaction is rolled back and the caller should exit(0).
func MigrationProcedureBreak(procedure string) *AppError {
	return newErr(KindMigrationBreak, procedure+" requested operator input", nil)
}

// Internal wraps an unexpected error that doesn't fit a more specific kind.
func Internal(cause error) *AppError {
	return newErr(KindInternal, "an unexpected error occurred", cause)
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain, or nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err's Kind (transitively through its chain) equals kind.
func Is(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}
