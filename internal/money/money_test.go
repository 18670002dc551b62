package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewQuantizesHalfUp(t *testing.T) {
	cases := map[string]string{
		"100.99999": "101.0000",
		"100.00005": "100.0001",
		"100.00004": "100.0000",
		"-0.00005":  "-0.0001",
		"  42 ":     "42.0000",
	}
	for in, want := range cases {
		got, err := New(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got.StringFixed(Places), in)
	}
}

func TestNewAcceptsIntegersAndDecimals(t *testing.T) {
	got, err := New(15)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("15")))

	got, err = New(uint64(7))
	require.NoError(t, err)
	require.True(t, got.Equal(dec("7")))

	d := dec("1.23456")
	got, err = New(&d)
	require.NoError(t, err)
	require.Equal(t, "1.2346", got.StringFixed(Places))
}

func TestNewRejectsFloatsAndGarbage(t *testing.T) {
	_, err := New(1.5)
	require.ErrorIs(t, err, ErrFloat)
	_, err = New(float32(2))
	require.ErrorIs(t, err, ErrFloat)

	for _, in := range []any{"", "   ", "abc", nil, struct{}{}} {
		_, err := New(in)
		require.ErrorIs(t, err, ErrInvalid)
	}
}

func TestDisplay(t *testing.T) {
	got, err := Display("10.005")
	require.NoError(t, err)
	require.Equal(t, "10.01", got)

	_, err = Display(10.0)
	require.ErrorIs(t, err, ErrFloat)
}

func TestArithmetic(t *testing.T) {
	require.Equal(t, "2.9997", Multiply(dec("33.33"), dec("0.09")).StringFixed(Places))
	require.Equal(t, "2.9997", GST(dec("33.33"), DefaultGSTRate).StringFixed(Places))
	require.Equal(t, "90.0000", GST(dec("1000"), DefaultGSTRate).StringFixed(Places))
	require.Equal(t, "0.6000", Sum(dec("0.1"), dec("0.2"), dec("0.3")).StringFixed(Places))

	q, err := Divide(dec("10"), dec("3"))
	require.NoError(t, err)
	require.Equal(t, "3.3333", q.StringFixed(Places))

	_, err = Divide(dec("10"), dec("0.00001"))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestExtractGSTFromInclusive(t *testing.T) {
	net, tax, err := ExtractGSTFromInclusive(dec("1090.00"), DefaultGSTRate)
	require.NoError(t, err)
	require.True(t, net.Equal(dec("1000")))
	require.True(t, tax.Equal(dec("90")))

	net, tax, err = ExtractGSTFromInclusive(dec("10.90"), DefaultGSTRate)
	require.NoError(t, err)
	require.True(t, net.Equal(dec("10.00")))
	require.True(t, tax.Equal(dec("0.90")))

	net, tax, err = ExtractGSTFromInclusive(dec("100"), DefaultGSTRate)
	require.NoError(t, err)
	require.True(t, net.Add(tax).Equal(dec("100")))
}

func TestBalanced(t *testing.T) {
	require.True(t, Balanced(dec("100.0000"), dec("100.0010")))
	require.False(t, Balanced(dec("100.0000"), dec("100.0011")))
}

func TestSumDoesNotDriftAcrossManyLines(t *testing.T) {
	lines := make([]decimal.Decimal, 0, 3000)
	for i := 0; i < 3000; i++ {
		lines = append(lines, GST(dec("33.33"), DefaultGSTRate))
	}
	require.Equal(t, "8999.1000", Sum(lines...).StringFixed(Places))
}
