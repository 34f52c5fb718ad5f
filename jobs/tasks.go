package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportArchiveWarmup pre-renders last month's report documents so
	// the first archive download of the month is a cache hit.
	TaskReportArchiveWarmup = "report:archive_warmup"
)

// ArchiveWarmupPayload scopes one warm-up run. An empty Period means "the
// month before the run date"; a zero OwnerID means every owner.
type ArchiveWarmupPayload struct {
	OwnerID int64  `json:"owner_id,omitempty"`
	Period  string `json:"period,omitempty"`
}

// NewArchiveWarmupTask constructs an Asynq task for an on-demand warm-up.
// Each task gets its own ID so repeated manual enqueues never collide.
func NewArchiveWarmupTask(payload ArchiveWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportArchiveWarmup, data, asynq.TaskID(uuid.NewString())), nil
}
