// Package constants provides centralized, immutable values shared across the
// ingestion core.
//
// It defines default timeouts, scan tuning, and cross-cutting keys so that
// magic numbers do not leak into the pipeline/storage/coordinator packages.
package constants

import "time"

// # Metadata

const (
	AppName    = "nndb-core"
	AppVersion = "0.1.0-dev"
)

// # Server Timing (ops HTTP surface)

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the per-request deadline of the ops HTTP server
	// and the statement_timeout applied to Postgres connections.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for the ops HTTP server to wind
	// down during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Signature Grouping (spec.md §4.2)

const (
	// SignatureDistanceThreshold (T) is the Euclidean distance below which two
	// signatures are considered "near" and eligible to share a group.
	SignatureDistanceThreshold = 35.0

	// SignatureLength is the fixed dimensionality of a perceptual signature
	// vector, expressed as signed 8-bit components.
	SignatureLength = 544
)

// # Thumbnailing (spec.md §4.5)

const (
	ThumbnailMaxWidth  = 256
	ThumbnailMaxHeight = 256
)

// # Scan pipeline tuning (spec.md §4.8)

const (
	// ScanChannelBuffer bounds in-flight memory between the CPU hashing pool
	// (producer) and the storage-admission consumer.
	ScanChannelBuffer = 1000

	// AdmissionChunkSize is the number of hashed entries accumulated before a
	// single add_elements call is issued.
	AdmissionChunkSize = 1000
)

// # Procedure names (spec.md §4.6)

const (
	ProcedureScanFiles     = "scan_files"
	ProcedureUpdateMeta    = "update_metadata"
	ProcedureGroupElements = "group_elements"
	ProcedureMakeThumbs    = "make_thumbnails"
	ProcedureFetchWikis    = "fetch_wikis"
)

// # Path tag sidechannel (spec.md §6)

const (
	// TagTrigger marks a directory segment as a source of path-derived tags.
	TagTrigger = "TAG."
)

// # JSON Field Identifiers (ops API)

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schema

const (
	SchemaCore = "core"
)

// # Redis key prefixes (cache taxonomy)

const (
	RedisPrefixQueryCache = "nndb:query:"
	RedisPrefixAliasCache = "nndb:alias:"
)
