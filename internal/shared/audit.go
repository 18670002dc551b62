package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Before   any
	After    any
	At       time.Time
}

// Validate checks the fields every audit record must carry.
func (l AuditLog) Validate() error {
	if l.TenantID == uuid.Nil {
		return errors.New("audit log requires tenant")
	}
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}

// Execer is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WriteAudit persists log through q. Ledger repositories call it with their
// transaction so the record commits or rolls back with the change it describes.
func WriteAudit(ctx context.Context, q Execer, log AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	before, err := snapshot(log.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(log.After)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	var actor *uuid.UUID
	if log.ActorID != uuid.Nil {
		actor = &log.ActorID
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, before, after, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`, log.TenantID, actor, log.Action, log.Entity, log.EntityID, before, after, at)
	return err
}

func snapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
