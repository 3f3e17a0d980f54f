package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
)

// Start registers the worker and launches the claim loop. It returns an error
// if the manager is already running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return services.Wrap(services.ErrValidation, "workflow", "start", "workflow manager already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.registerWorker(runCtx); err != nil {
		m.Stop()
		return err
	}

	m.logger.Info("workflow manager started",
		logging.String("worker", m.cfg.Worker.Name),
		logging.String("queues", strings.Join(m.queues, ",")),
		logging.Duration("poll_interval", m.pollInterval))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runLoop(runCtx)
	}()
	return nil
}

// Stop cancels the claim loop and waits for any in-flight job processing to
// unwind. Safe to call multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.running = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Running reports whether the claim loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) registerWorker(ctx context.Context) error {
	worker := queue.Worker{
		Name:       m.cfg.Worker.Name,
		VersionTag: m.cfg.Worker.VersionTag,
		Queues:     m.queues,
	}
	if err := m.store.UpsertWorker(ctx, worker); err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "register", "failed to register worker in coordinator registry", err)
	}
	return nil
}

func (m *Manager) runLoop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		m.heartbeat.ReclaimStale(ctx)
		if err := m.registerWorker(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("worker registry refresh failed", logging.Error(err))
		}

		job, err := m.store.Claim(ctx, m.cfg.Worker.Name, m.queues...)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			m.logger.Error("claim failed", logging.Error(err))
			if notifyErr := m.notifier.NotifyError(ctx, err, "claim"); notifyErr != nil {
				m.logger.Warn("notification failed", logging.Error(notifyErr))
			}
			timer.Reset(m.pollInterval)
			continue
		}
		if job == nil {
			timer.Reset(m.pollInterval)
			continue
		}

		m.processJob(ctx, job)
		// Drain available work before sleeping again.
		timer.Reset(0)
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	requestID := uuid.NewString()[:8]
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithQueue(jobCtx, job.Queue)
	jobCtx = services.WithRequestID(jobCtx, requestID)
	logger := logging.WithContext(jobCtx, m.logger)

	logger.Info("claimed job",
		logging.String("project_id", job.ProjectID),
		logging.Int("clips", len(job.ClipIDs)))
	title := jobTitle(job)
	if err := m.notifier.NotifyJobStarted(jobCtx, title, job.Queue); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}

	started := time.Now()
	err := m.executeWithHeartbeat(jobCtx, job)

	switch {
	case err == nil:
		m.setLastError(nil)
		logger.Info("job completed", logging.Duration("elapsed", time.Since(started).Round(time.Second)))
		if notifyErr := m.notifier.NotifyJobCompleted(jobCtx, title, time.Since(started)); notifyErr != nil {
			logger.Warn("notification failed", logging.Error(notifyErr))
		}
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		m.revertToPending(job, logger)
	default:
		m.setLastError(err)
		m.failJob(jobCtx, job, title, err, logger)
	}
}

// executeWithHeartbeat runs Prepare and Execute while a background goroutine
// keeps the job's heartbeat fresh so other workers do not reclaim it.
func (m *Manager) executeWithHeartbeat(ctx context.Context, job *queue.Job) error {
	if err := m.handler.Prepare(ctx, job); err != nil {
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()

	var hbDone sync.WaitGroup
	hbDone.Add(1)
	go func() {
		defer hbDone.Done()
		m.heartbeat.StartLoop(hbCtx, job.ID)
	}()

	err := m.handler.Execute(ctx, job)
	stopHeartbeat()
	hbDone.Wait()
	return err
}

// revertToPending returns an interrupted job to the queue so another worker
// (or this one after restart) can pick it up.
func (m *Manager) revertToPending(job *queue.Job, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	current, err := m.store.GetByID(ctx, job.ID)
	if err != nil || current == nil {
		logger.Warn("could not load interrupted job for redelivery", logging.Error(err))
		return
	}
	if current.Status == queue.StatusCompleted || current.Status == queue.StatusFailed {
		return
	}
	ok, err := m.store.Transition(ctx, job.ID, current.Status, queue.StatusPending)
	if err != nil {
		logger.Warn("failed to revert interrupted job to pending", logging.Error(err))
		return
	}
	if ok {
		logger.Info("returned interrupted job to queue")
	}
}

// jobTitle derives a human-readable title for notifications from the job's
// options payload, falling back to the project identifier.
func jobTitle(job *queue.Job) string {
	if opts, err := stage.ParseOptions(job.OptionsJSON); err == nil {
		if title := strings.TrimSpace(opts.Title); title != "" {
			return title
		}
	}
	return fmt.Sprintf("project %s (job %s)", job.ProjectID, strconv.FormatInt(job.ID, 10))
}
