package banking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// AllocationCapError indicates the allocations would exceed the payment
// amount. It unwraps to shared.ErrValidation.
type AllocationCapError struct {
	Requested decimal.Decimal
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *AllocationCapError) Error() string {
	return fmt.Sprintf("total allocations (%s) exceed payment amount (%s); remaining available: %s",
		e.Requested.StringFixed(2), e.Amount.StringFixed(2), e.Remaining.StringFixed(2))
}

func (e *AllocationCapError) Unwrap() error {
	return shared.ErrValidation
}
