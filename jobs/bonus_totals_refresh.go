package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/peopledesk/internal/jobs"
)

// BonusTotalsUniqueTTL keeps at most one pending refresh in the queue.
const BonusTotalsUniqueTTL = 25 * time.Minute

// BonusTotalsRefresher recomputes and caches bonus totals.
type BonusTotalsRefresher interface {
	RefreshBonusTotals(ctx context.Context) (int, error)
}

// BonusTotalsRefreshJob handles TaskBonusTotalsRefresh.
type BonusTotalsRefreshJob struct {
	Refresher BonusTotalsRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewBonusTotalsRefreshJob wires dependencies for the refresh handler.
func NewBonusTotalsRefreshJob(refresher BonusTotalsRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *BonusTotalsRefreshJob {
	return &BonusTotalsRefreshJob{Refresher: refresher, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes bonus totals refresh tasks.
func (j *BonusTotalsRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("bonus totals refresh: handler not configured")
	}
	var payload BonusTotalsRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskBonusTotalsRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("requested_by", payload.RequestedBy))
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	count, err := j.Refresher.RefreshBonusTotals(ctx)
	if err != nil {
		resultErr = err
		logger.Error("refresh bonus totals", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetProcessed(TaskBonusTotalsRefresh, count)
	logger.Info("refreshed bonus totals", slog.Int("users", count), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BonusTotalsRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBonusTotalsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskBonusTotalsRefresh))
}

func (j *BonusTotalsRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
