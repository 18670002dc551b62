package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the ledger wraps exactly one of these
// so callers can branch with errors.Is.
var (
	// ErrValidation indicates malformed input or a broken business rule.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrUnbalanced indicates debit != credit. It is a validation failure.
	ErrUnbalanced = fmt.Errorf("%w: journal lines must balance", ErrValidation)
	// ErrPeriodClosed indicates the covering fiscal period is not open.
	ErrPeriodClosed = errors.New("accounting: fiscal period closed")
	// ErrPeriodNotFound indicates no fiscal period covers the date.
	ErrPeriodNotFound = errors.New("accounting: fiscal period not found")
	// ErrNotFound indicates a missing or cross-tenant resource.
	ErrNotFound = errors.New("accounting: resource not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("accounting: duplicate resource")
	// ErrImmutable indicates an attempt to change posted history.
	ErrImmutable = errors.New("accounting: posted records are immutable")
)

// Specific conditions built on the kinds above.
var (
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = fmt.Errorf("%w: journal requires at least two lines", ErrValidation)
	// ErrInvalidEntryType indicates an unknown entry type.
	ErrInvalidEntryType = fmt.Errorf("%w: unknown entry type", ErrValidation)
	// ErrInvalidLine indicates a line that is not exactly one-sided.
	ErrInvalidLine = fmt.Errorf("%w: invalid journal line", ErrValidation)
	// ErrDateOutOfRange indicates the entry date falls outside the supplied period.
	ErrDateOutOfRange = fmt.Errorf("%w: date outside period", ErrValidation)
	// ErrAccountInactive indicates a posting to an archived account.
	ErrAccountInactive = fmt.Errorf("%w: account is archived", ErrValidation)
	// ErrAccountNotFound indicates a missing or cross-tenant account.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)
	// ErrJournalNotFound indicates a missing or cross-tenant entry.
	ErrJournalNotFound = fmt.Errorf("%w: journal entry", ErrNotFound)
	// ErrAlreadyReversed indicates the entry already carries a reversal.
	ErrAlreadyReversed = fmt.Errorf("%w: journal entry already reversed", ErrDuplicate)
	// ErrMappingNotFound indicates a control account mapping is missing.
	ErrMappingNotFound = fmt.Errorf("%w: account mapping", ErrNotFound)
)

// Validationf returns an ErrValidation carrying a human readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound naming the missing resource.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Duplicatef returns an ErrDuplicate describing the conflict.
func Duplicatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, fmt.Sprintf(format, args...))
}

// LineError wraps err with the zero-based position of the offending line.
func LineError(idx int, err error) error {
	return fmt.Errorf("line %d: %w", idx, err)
}
