package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Integrity failures surfaced by the store. All are terminal for the
// offending write; the store never retries.
var (
	// ErrDuplicate reports a uniqueness violation on a primary or
	// composite key.
	ErrDuplicate = errors.New("duplicate key")

	// ErrMissingGridCell reports climate data written for a geohash
	// with no matching grid cell.
	ErrMissingGridCell = errors.New("grid cell does not exist")

	// ErrInvalidGeometry reports a polygon the database could not
	// parse as WGS84 well-known text.
	ErrInvalidGeometry = errors.New("invalid polygon geometry")

	// ErrNotFound reports a delete or lookup for a row that does not
	// exist.
	ErrNotFound = errors.New("not found")
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInternalError       = "XX000"
)

// mapError translates Postgres SQLSTATE codes into the store's sentinel
// errors. PostGIS reports WKT parse failures as class 22 data
// exceptions or XX000 internal errors depending on version; the only
// class-22 failures this schema can produce come from geometry text.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w (%s)", ErrDuplicate, pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrMissingGridCell, pgErr.Detail)
	}

	if strings.HasPrefix(pgErr.Code, "22") || pgErr.Code == codeInternalError {
		return fmt.Errorf("%w: %s", ErrInvalidGeometry, pgErr.Message)
	}

	return err
}
