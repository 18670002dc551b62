package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	require.True(t, errors.Is(ErrUnbalanced, ErrValidation))
	require.True(t, errors.Is(ErrInvalidLine, ErrValidation))
	require.True(t, errors.Is(ErrAccountNotFound, ErrNotFound))
	require.True(t, errors.Is(ErrAlreadyReversed, ErrDuplicate))
	require.False(t, errors.Is(ErrPeriodClosed, ErrPeriodNotFound))

	err := LineError(2, ErrInvalidLine)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "line 2")

	err = Validationf("amount %s too large", "10.00")
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "amount 10.00 too large")
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Code string `validate:"required,min=4,max=10"`
		Name string `validate:"required"`
	}
	require.NoError(t, ValidateStruct(input{Code: "1200", Name: "AR"}))

	err := ValidateStruct(input{Code: "12"})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Code (min)")
	require.Contains(t, err.Error(), "Name (required)")
}
