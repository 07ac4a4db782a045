package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/peopledesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBonusTotalsRefresh recomputes every user's bonus total into the cache.
	TaskBonusTotalsRefresh = "users:bonus_totals_refresh"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

	// BonusTotalsRefreshCron runs the refresh every thirty minutes.
	BonusTotalsRefreshCron = "*/30 * * * *"
	// IdempotencyCleanupCron runs the cleanup nightly.
	IdempotencyCleanupCron = "15 2 * * *"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// BonusTotalsRefreshPayload describes who asked for a refresh.
type BonusTotalsRefreshPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewBonusTotalsRefreshTask constructs an Asynq task.
func NewBonusTotalsRefreshTask(payload BonusTotalsRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBonusTotalsRefresh, data), nil
}

// IdempotencyCleanupPayload sets the retention window in hours. Zero means one week.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// DefaultCron returns the periodic registrations of the worker.
func DefaultCron() ([]CronRegistration, error) {
	refresh, err := NewBonusTotalsRefreshTask(BonusTotalsRefreshPayload{RequestedBy: "scheduler"})
	if err != nil {
		return nil, err
	}
	cleanup, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: BonusTotalsRefreshCron, Task: refresh, Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.Unique(BonusTotalsUniqueTTL)}},
		{Spec: IdempotencyCleanupCron, Task: cleanup, Options: []asynq.Option{asynq.Queue(QueueDefault)}},
	}, nil
}
