package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/peopledesk/internal/jobs"
	"github.com/odyssey-erp/peopledesk/internal/shared"
)

type stubRefresher struct {
	count int
	err   error
	calls int
}

func (s *stubRefresher) RefreshBonusTotals(ctx context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type stubPruner struct {
	olderThan time.Duration
	removed   int64
	err       error
}

func (s *stubPruner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.removed, s.err
}

type stubEnqueuer struct {
	payload BonusTotalsRefreshPayload
	err     error
}

func (s *stubEnqueuer) EnqueueBonusTotalsRefresh(ctx context.Context, payload BonusTotalsRefreshPayload) (*asynq.TaskInfo, error) {
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestBonusTotalsRefreshJob(t *testing.T) {
	refresher := &stubRefresher{count: 3}
	job := NewBonusTotalsRefreshJob(refresher, nil, testMetrics())

	task, err := NewBonusTotalsRefreshTask(BonusTotalsRefreshPayload{RequestedBy: "test"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, refresher.calls)

	refresher.err = errors.New("redis down")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestBonusTotalsRefreshJobBadPayload(t *testing.T) {
	job := NewBonusTotalsRefreshJob(&stubRefresher{}, nil, testMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskBonusTotalsRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var unset *BonusTotalsRefreshJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskBonusTotalsRefresh, nil)))
}

func TestIdempotencyCleanupJob(t *testing.T) {
	pruner := &stubPruner{removed: 4}
	job := &IdempotencyCleanupJob{Store: pruner, Metrics: testMetrics()}

	task, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 7*24*time.Hour, pruner.olderThan)

	task, err = NewIdempotencyCleanupTask(IdempotencyCleanupPayload{RetentionHours: 2})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 2*time.Hour, pruner.olderThan)

	pruner.err = errors.New("boom")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestDefaultCron(t *testing.T) {
	entries, err := DefaultCron()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, BonusTotalsRefreshCron, entries[0].Spec)
	assert.Equal(t, TaskBonusTotalsRefresh, entries[0].Task.Type())
	assert.Equal(t, IdempotencyCleanupCron, entries[1].Spec)
	assert.Equal(t, TaskIdempotencyCleanup, entries[1].Task.Type())

	var payload BonusTotalsRefreshPayload
	require.NoError(t, json.Unmarshal(entries[0].Task.Payload(), &payload))
	assert.Equal(t, "scheduler", payload.RequestedBy)
}

func newJobsRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/jobs", func(r chi.Router) {
		h.MountRoutes(r)
		h.MountAdminRoutes(r)
	})
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	r := newJobsRouter(NewHandler(nil, nil, nil))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, res.Body.String())
}

func TestRefreshEndpoint(t *testing.T) {
	res := httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, nil, nil)).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)

	enq := &stubEnqueuer{}
	r := newJobsRouter(NewHandler(nil, enq, nil))
	req := httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil)
	req = req.WithContext(shared.ContextWithUserID(req.Context(), 7))
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, "user:7", enq.payload.RequestedBy)
	assert.Contains(t, res.Body.String(), "task-1")

	enq.err = asynq.ErrDuplicateTask
	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil))
	require.Equal(t, http.StatusConflict, res.Code, "a pending refresh is reported as a conflict")
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Body.String(), "already queued")
	assert.Equal(t, "http", enq.payload.RequestedBy)
}
