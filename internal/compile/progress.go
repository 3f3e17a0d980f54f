package compile

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

func probeCacheTTL(cfg *config.Config) time.Duration {
	if cfg.Encoder.ProbeCacheSeconds > 0 {
		return time.Duration(cfg.Encoder.ProbeCacheSeconds) * time.Second
	}
	return 5 * time.Minute
}

// progressReporter pushes job progress to the local store and the worker API.
// Reported percentages are clamped to be monotonically non-decreasing so a
// duplicate or late update never reads as regression. Reporting failures are
// logged but never fail the job.
type progressReporter struct {
	store  *queue.Store
	api    API
	job    *queue.Job
	status queue.Status
	logger *slog.Logger
	last   float64
}

func newProgressReporter(store *queue.Store, api API, job *queue.Job, logger *slog.Logger) *progressReporter {
	return &progressReporter{
		store:  store,
		api:    api,
		job:    job,
		status: job.Status,
		last:   job.ProgressPercent,
		logger: logger,
	}
}

// setStatus records the lifecycle status included with API updates.
func (r *progressReporter) setStatus(status queue.Status) {
	r.status = status
}

func (r *progressReporter) report(ctx context.Context, stage, message string, percent float64) {
	if percent < r.last {
		percent = r.last
	}
	if percent > 100 {
		percent = 100
	}
	r.last = percent
	r.job.SetProgress(stage, message, percent)

	if _, err := r.store.UpdateProgress(ctx, r.job.ID, stage, message, percent); err != nil {
		r.logger.Warn("failed to persist progress", logging.Error(err))
	}
	if err := r.api.UpdateJob(ctx, strconv.FormatInt(r.job.ID, 10), workerapi.JobUpdate{
		Status:          string(r.status),
		ProgressPercent: percent,
		Stage:           stage,
		Message:         message,
	}); err != nil {
		r.logger.Warn("failed to push progress to worker API", logging.Error(err))
	}
}
