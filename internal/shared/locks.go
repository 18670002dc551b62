package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// IntegrityLockKey builds the redis key guarding a tenant's integrity run.
func IntegrityLockKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("ledger:tenant:%s:integrity:lock", tenantID)
}

// IntegrityStatusKey builds the redis key holding a tenant's last integrity result.
func IntegrityStatusKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("ledger:tenant:%s:integrity", tenantID)
}
