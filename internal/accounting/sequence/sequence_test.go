package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type stubRow struct {
	n   int64
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.n
	return nil
}

type stubQueryer struct {
	counters map[string]int64
	args     []any
	fail     error
}

func (q *stubQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.args = args
	if q.fail != nil {
		return stubRow{err: q.fail}
	}
	key := args[0].(uuid.UUID).String() + "/" + args[1].(string)
	q.counters[key]++
	return stubRow{n: q.counters[key]}
}

func TestNextPerTenantAndKey(t *testing.T) {
	q := &stubQueryer{counters: map[string]int64{}}
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	for want := int64(1); want <= 3; want++ {
		n, err := Next(ctx, q, a, KeyJournal)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	n, err := Next(ctx, q, b, KeyJournal)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = Next(ctx, q, a, KeyPaymentReceived)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, []any{a, KeyPaymentReceived}, q.args)
}

func TestNextWrapsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Next(context.Background(), &stubQueryer{fail: boom}, uuid.New(), KeyJournal)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "JE")
}

func TestFormat(t *testing.T) {
	require.Equal(t, "JE-00042", Format(KeyJournal, 42))
	require.Equal(t, "RCP-00001", Format(KeyPaymentReceived, 1))
	require.Equal(t, "JE-123456", Format(KeyJournal, 123456))
}
