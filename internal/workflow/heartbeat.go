package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
)

// HeartbeatMonitor keeps a claimed job's heartbeat fresh while it is being
// processed and reclaims jobs whose worker stopped heartbeating.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor builds a monitor with sane floors on both durations.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= interval {
		timeout = 4 * interval
	}
	return &HeartbeatMonitor{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "heartbeat"),
		interval: interval,
		timeout:  timeout,
	}
}

// StartLoop ticks heartbeats for the given job until the context is
// cancelled. It returns once the context ends.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, jobID int64) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warn("heartbeat update failed",
					logging.Int64("job_id", jobID),
					logging.Error(err))
			}
		}
	}
}

// ReclaimStale returns jobs abandoned by dead workers to the pending state so
// another worker can claim them.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) {
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("stale job reclaim failed", logging.Error(err))
		}
		return
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale jobs",
			logging.Int64("count", reclaimed),
			logging.Duration("timeout", h.timeout))
	}
}
