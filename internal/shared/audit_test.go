package shared

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type captureExecer struct {
	sql  string
	args []any
}

func (c *captureExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql = sql
	c.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestWriteAuditSnapshots(t *testing.T) {
	exec := &captureExecer{}
	tenant := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := WriteAudit(context.Background(), exec, AuditLog{
		TenantID: tenant,
		Action:   "payment.void",
		Entity:   "payment",
		EntityID: "p-1",
		Before:   map[string]any{"is_voided": false},
		After:    map[string]any{"is_voided": true},
		At:       at,
	})
	require.NoError(t, err)
	require.Contains(t, exec.sql, "INSERT INTO audit_logs")
	require.Len(t, exec.args, 8)
	require.Equal(t, tenant, exec.args[0])
	require.Nil(t, exec.args[1].(*uuid.UUID))

	var after map[string]bool
	require.NoError(t, json.Unmarshal(exec.args[6].([]byte), &after))
	require.True(t, after["is_voided"])
	require.Equal(t, at, *exec.args[7].(*time.Time))
}

func TestWriteAuditRequiresFields(t *testing.T) {
	exec := &captureExecer{}
	err := WriteAudit(context.Background(), exec, AuditLog{Action: "x", Entity: "y", EntityID: "z"})
	require.Error(t, err)
	err = WriteAudit(context.Background(), exec, AuditLog{TenantID: uuid.New(), Entity: "y", EntityID: "z"})
	require.Error(t, err)
	require.Empty(t, exec.sql)
}
