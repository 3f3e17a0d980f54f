package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/notifications"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

// JobReporter pushes terminal job state to the application. Satisfied by
// *workerapi.Client.
type JobReporter interface {
	UpdateJob(ctx context.Context, jobID string, update workerapi.JobUpdate) error
}

// Manager runs the worker's claim-process loop: it registers this worker in
// the coordinator registry, reclaims stale claims, claims pending jobs from
// the served queues in priority order, and drives each through the compile
// stage with a heartbeat.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	handler      stage.Handler
	reporter     JobReporter
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor
	queues       []string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with the default ntfy notifier.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, reporter JobReporter, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, handler, reporter, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, handler stage.Handler, reporter JobReporter, logger *slog.Logger, notifier notifications.Service) *Manager {
	pollInterval := time.Duration(cfg.Worker.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	queues := cfg.Worker.Queues
	if len(queues) == 0 {
		queues = []string{config.QueueGeneric}
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		handler:      handler,
		reporter:     reporter,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifier,
		pollInterval: pollInterval,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Worker.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Worker.HeartbeatTimeout)*time.Second,
		),
		queues: queues,
	}
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
