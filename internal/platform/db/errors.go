package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// SQLSTATE codes produced by postgres or by the ledger triggers.
const (
	CodeUniqueViolation = "23505"
	CodeImmutable       = "LS001"
	CodeUnbalanced      = "LS002"
)

// MapError converts postgres failures into ledger error kinds. Errors that
// already carry a kind, or that did not come from postgres, are returned as is.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case CodeUniqueViolation:
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
	case CodeImmutable:
		return fmt.Errorf("%w: %s", shared.ErrImmutable, pgErr.Message)
	case CodeUnbalanced:
		return fmt.Errorf("%w: %s", shared.ErrUnbalanced, pgErr.Message)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != CodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
