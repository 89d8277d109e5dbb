package storage

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the [Store] implementation backed by a pgxpool.Pool,
// grounded in the teacher's internal/core/tag Postgres repository idiom:
// plain SQL (no ORM), every error routed through dberr.Wrap, one
// transaction per logical mutation.
type PostgresStore struct {
	pool            *pgxpool.Pool
	elementPoolPath string
	testingMode     bool
}

// NewPostgresStore constructs a [PostgresStore] over an already-connected
// pool. elementPoolPath is where admitted files are moved (or copied, in
// testingMode); see spec.md §6.
func NewPostgresStore(pool *pgxpool.Pool, elementPoolPath string, testingMode bool) *PostgresStore {
	return &PostgresStore{
		pool:            pool,
		elementPoolPath: elementPoolPath,
		testingMode:     testingMode,
	}
}

var _ Store = (*PostgresStore)(nil)
