// Package dberr bridges low-level pgx/Postgres errors into [apperr.AppError]
// values classified per spec.md §7.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikvoid/nndb-core/internal/platform/apperr"
)

// Wrap inspects a database error returned by pool/tx and classifies it as an
// [apperr.AppError]. action names the caller's operation for logging.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(action)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(action + ": unique constraint violated")
		case pgerrcode.ForeignKeyViolation:
			return apperr.Invalid(action + ": referenced row does not exist")
		}
	}

	return apperr.StorageError(action, err)
}
