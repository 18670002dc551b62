package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

type Repository interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (AccountMapping, error)
	Set(ctx context.Context, tenantID uuid.UUID, key string, accountID uuid.UUID) error
}

type repository struct {
	db db.DBTX
}

// NewRepository accepts the pool or a transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, key string) (AccountMapping, error) {
	if tenantID == uuid.Nil || key == "" {
		return AccountMapping{}, errors.New("accounting: tenant and key required")
	}
	var mapping AccountMapping
	err := r.db.QueryRow(ctx, `SELECT tenant_id, key, account_id, created_at, updated_at FROM account_mappings WHERE tenant_id=$1 AND key=$2`, tenantID, strings.ToUpper(key)).
		Scan(&mapping.TenantID, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// Set creates or replaces the mapping for key.
func (r *repository) Set(ctx context.Context, tenantID uuid.UUID, key string, accountID uuid.UUID) error {
	if tenantID == uuid.Nil || key == "" || accountID == uuid.Nil {
		return errors.New("accounting: tenant, key and account required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO account_mappings (tenant_id, key, account_id) VALUES ($1,$2,$3)
ON CONFLICT (tenant_id, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`, tenantID, strings.ToUpper(key), accountID)
	return err
}
