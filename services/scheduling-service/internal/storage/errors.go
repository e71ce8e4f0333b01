package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsConflict reports an exclusion constraint violation (overlapping appointment).
func IsConflict(err error) bool {
	return pgCode(err) == "23P01"
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
