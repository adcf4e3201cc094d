package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateKey is returned when an insert violates a uniqueness
// constraint (e.g. the same phone number twice in one campaign).
var ErrDuplicateKey = errors.New("duplicate key")

// IsDuplicate reports whether err is a uniqueness violation from either
// store implementation.
func IsDuplicate(err error) bool {
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
