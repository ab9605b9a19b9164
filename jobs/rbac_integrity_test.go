package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/madrasa-erp/madrasa-erp/internal/jobs"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func danglingStore(t *testing.T) *rbac.Store {
	t.Helper()
	source := rbac.SourceFunc(func(ctx context.Context) (*rbac.Snapshot, error) {
		return rbac.NewSnapshot(
			[]rbac.Permission{{ID: "view_users"}},
			[]rbac.Role{
				{ID: "role_a", Name: "A", Permissions: []string{"view_users", "ghost_perm"}, InheritsFrom: []string{"role_b"}},
				{ID: "role_b", Name: "B", InheritsFrom: []string{"role_a"}},
			},
			nil,
		)
	})
	store, err := rbac.NewStore(context.Background(), source, discardLogger())
	require.NoError(t, err)
	return store
}

func TestIntegrityJobReportsFindings(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewIntegrityJob(danglingStore(t), discardLogger(), metrics)

	findings, err := job.Run(context.Background(), IntegrityPayload{Reload: true})
	require.NoError(t, err)

	kinds := map[rbac.FindingKind]int{}
	for _, f := range findings {
		kinds[f.Kind]++
	}
	assert.Equal(t, 1, kinds[rbac.FindingDanglingGrant])
	assert.Equal(t, 1, kinds[rbac.FindingCycle])

	count, err := testutil.GatherAndCount(registry, "madrasa_rbac_integrity_findings")
	require.NoError(t, err)
	assert.Equal(t, len(rbac.FindingKinds()), count)
}

func TestIntegrityJobCleanSeed(t *testing.T) {
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), discardLogger())
	require.NoError(t, err)
	job := NewIntegrityJob(store, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIntegrityTask(IntegrityPayload{})
	require.NoError(t, err)
	assert.Equal(t, TaskRBACIntegrity, task.Type())
	assert.NoError(t, job.Handle(context.Background(), task))

	findings, err := job.Run(context.Background(), IntegrityPayload{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestIntegrityJobRejectsBadPayload(t *testing.T) {
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), discardLogger())
	require.NoError(t, err)
	job := NewIntegrityJob(store, discardLogger(), nil)

	err = job.Handle(context.Background(), asynq.NewTask(TaskRBACIntegrity, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var nilJob *IntegrityJob
	assert.Error(t, nilJob.Handle(context.Background(), asynq.NewTask(TaskRBACIntegrity, nil)))
}

type reloadFailStore struct{ *rbac.Store }

func (reloadFailStore) Reload(context.Context) error { return errors.New("source down") }

func TestIntegrityJobReloadFailure(t *testing.T) {
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), discardLogger())
	require.NoError(t, err)
	job := NewIntegrityJob(reloadFailStore{store}, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	_, err = job.Run(context.Background(), IntegrityPayload{Reload: true})
	assert.EqualError(t, err, "source down")
}

type recordingEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) Close() error {
	r.closed = true
	return nil
}

func TestClientEnqueueIntegrity(t *testing.T) {
	rec := &recordingEnqueuer{}
	client := NewClientWith(rec)

	info, err := client.EnqueueIntegrity(context.Background(), IntegrityPayload{Reload: true})
	require.NoError(t, err)
	assert.Equal(t, TaskRBACIntegrity, info.Type)
	require.Len(t, rec.tasks, 1)
	assert.JSONEq(t, `{"reload":true}`, string(rec.tasks[0].Payload()))

	require.NoError(t, client.Close())
	assert.True(t, rec.closed)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		body      string
	}{
		{"no inspector", nil, http.StatusOK, `{"queue":"default","pending":0,"active":0,"failed":0}`},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Active: 1}}, http.StatusOK, `{"queue":"default","pending":3,"active":1,"failed":0}`},
		{"redis down", stubInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, discardLogger()).MountRoutes)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}
