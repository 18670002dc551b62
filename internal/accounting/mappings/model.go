package mappings

import (
	"time"

	"github.com/google/uuid"
)

// Well known mapping keys for control accounts.
const (
	KeyReceivable = "AR"
	KeyPayable    = "AP"
	KeyGSTOutput  = "GST_OUTPUT"
	KeyGSTInput   = "GST_INPUT"
)

// AccountMapping pins a control key to a tenant's ledger account.
type AccountMapping struct {
	TenantID  uuid.UUID
	Key       string
	AccountID uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
