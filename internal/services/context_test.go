package services_test

import (
	"context"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 7)
	id, ok := services.JobIDFromContext(ctx)
	if !ok || id != 7 {
		t.Fatalf("JobIDFromContext = %d, %v; want 7, true", id, ok)
	}
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("expected no job id on empty context")
	}
}

func TestStageQueueRequestID(t *testing.T) {
	ctx := services.WithStage(context.Background(), "concatenating")
	ctx = services.WithQueue(ctx, "cpu")
	ctx = services.WithRequestID(ctx, "req-123")

	if stage, ok := services.StageFromContext(ctx); !ok || stage != "concatenating" {
		t.Errorf("stage = %q, %v", stage, ok)
	}
	if queue, ok := services.QueueFromContext(ctx); !ok || queue != "cpu" {
		t.Errorf("queue = %q, %v", queue, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Errorf("request id = %q, %v", rid, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	ctx = services.WithQueue(context.Background(), "")
	if _, ok := services.QueueFromContext(ctx); ok {
		t.Fatal("empty queue should not be stored")
	}
}
