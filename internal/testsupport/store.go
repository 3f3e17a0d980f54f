package testsupport

import (
	"context"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueJob inserts a pending compilation job for tests using the provided store.
func EnqueueJob(t testing.TB, store *queue.Store, projectID string, clipIDs ...string) *queue.Job {
	t.Helper()

	if len(clipIDs) == 0 {
		clipIDs = []string{"clip-1"}
	}
	job, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		ProjectID: projectID,
		ClipIDs:   clipIDs,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
