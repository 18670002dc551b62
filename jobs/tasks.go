package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/nordeim/ledgersg/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity recomputes trial balances and records whether each
	// tenant's ledger is in balance.
	TaskGLIntegrity = "ledger:gl_integrity"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// GLIntegrityPayload narrows an integrity run. An empty payload checks every
// tenant as of now.
type GLIntegrityPayload struct {
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	AsOf     *time.Time `json:"as_of,omitempty"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}
