package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert hits a unique constraint.
	ErrConflict = errors.New("record already exists")
	// ErrAlreadyCompleted is returned when a completion finds the attempt already closed.
	ErrAlreadyCompleted = errors.New("attempt already completed")
)

const uniqueViolation = "23505"

// notFound maps pgx.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
