package stage

import (
	"context"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
)

// Handler describes the contract the workflow manager needs from a job stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}
