package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/madrasa-erp/madrasa-erp/internal/jobs"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// IntegrityStore is the part of rbac.Store the scan needs.
type IntegrityStore interface {
	Snapshot() *rbac.Snapshot
	Reload(ctx context.Context) error
}

// IntegrityJob runs rbac.CheckIntegrity against the current snapshot.
type IntegrityJob struct {
	Store   IntegrityStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityJob initialises the integrity scan handler.
func NewIntegrityJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity scan. Findings are reported, not treated as failures.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("rbac integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run performs one scan and returns its findings.
func (j *IntegrityJob) Run(ctx context.Context, payload IntegrityPayload) ([]rbac.Finding, error) {
	start := time.Now()
	tracker := j.metrics().Track(TaskRBACIntegrity)
	logger := j.logger().With(slog.Bool("reload", payload.Reload))

	if payload.Reload {
		if err := j.Store.Reload(ctx); err != nil {
			logger.Error("reload failed", slog.Any("error", err))
			return nil, tracker.End(err)
		}
	}

	snap := j.Store.Snapshot()
	findings := rbac.CheckIntegrity(snap)
	counts := make(map[string]int, len(findings))
	for _, f := range findings {
		counts[string(f.Kind)]++
		logger.Warn("rbac integrity finding", slog.String("kind", string(f.Kind)), slog.String("detail", f.String()))
	}
	kinds := make([]string, 0, len(rbac.FindingKinds()))
	for _, k := range rbac.FindingKinds() {
		kinds = append(kinds, string(k))
	}
	j.metrics().SetIntegrityFindings(kinds, counts)

	logger.Info("completed rbac integrity scan",
		slog.Uint64("version", snap.Version()),
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)),
	)
	return findings, tracker.End(nil)
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRBACIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskRBACIntegrity))
}

func (j *IntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
