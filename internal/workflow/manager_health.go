package workflow

import (
	"context"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
)

// Health reports readiness of the compile stage and the queue database.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, 2)
	checks = append(checks, m.handler.HealthCheck(ctx))

	if _, err := m.store.Health(ctx); err != nil {
		checks = append(checks, stage.Unhealthy("queue", err.Error()))
	} else {
		checks = append(checks, stage.Healthy("queue"))
	}
	return checks
}
