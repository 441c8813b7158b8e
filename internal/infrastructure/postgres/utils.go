package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/epp-ledger/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// conflictCodes SQLSTATE transitorios: serialización, deadlock, lock_timeout, statement_timeout.
var conflictCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled
}

// classify convierte errores de contención en *domain.ConcurrencyConflictError; el resto pasa igual.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && conflictCodes[pgErr.Code] {
		return &domain.ConcurrencyConflictError{Op: op, Err: err}
	}
	return err
}

// nullable convierte "" en NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// deref inversa de nullable.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
