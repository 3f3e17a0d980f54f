package workflow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

// failJob records a failed job locally, reports it to the application, and
// notifies operators. The application push and the notification are
// best-effort; the local MarkFailed is the source of truth.
func (m *Manager) failJob(ctx context.Context, job *queue.Job, title string, execErr error, logger *slog.Logger) {
	message := failureMessage(execErr)
	category := services.Category(execErr)
	logger.Error("job failed",
		logging.String("category", category),
		logging.Error(execErr))

	storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.store.MarkFailed(storeCtx, job.ID, message); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	if m.reporter != nil {
		update := workerapi.JobUpdate{
			Status:  string(queue.StatusFailed),
			Stage:   "Failed",
			Message: message,
			Error:   category + ": " + message,
		}
		if err := m.reporter.UpdateJob(storeCtx, strconv.FormatInt(job.ID, 10), update); err != nil {
			logger.Warn("failed to report job failure to application", logging.Error(err))
		}
	}
	if err := m.notifier.NotifyJobFailed(ctx, title, message); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
}

// failureMessage produces the operator-facing message stored on the job.
func failureMessage(err error) string {
	if err == nil {
		return queue.DaemonStopReason
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "compilation failed"
	}
	return message
}
