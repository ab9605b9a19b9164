package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACIntegrity scans the loaded role data for dangling references and cycles.
	TaskRBACIntegrity = "rbac:integrity"
)

// IntegrityPayload configures a single integrity scan.
type IntegrityPayload struct {
	// Reload re-reads the role source before scanning.
	Reload bool `json:"reload"`
}

// NewIntegrityTask constructs an Asynq task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACIntegrity, data, asynq.MaxRetry(3)), nil
}
