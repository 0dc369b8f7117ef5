package postgres

import (
	"errors"
	"fmt"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = fmt.Errorf("postgres: %w", domain.ErrNotFound)
	ErrConflict = fmt.Errorf("postgres: %w", domain.ErrConflict)
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
