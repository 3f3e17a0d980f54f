package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), "Friday Night", time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, out *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		out.title = r.Header.Get("Title")
		out.tags = r.Header.Get("Tags")
		out.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		out.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyServiceFormatsJobFailed(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobFailed(context.Background(), "Friday Night", "encoder exited"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	if got.title != "ClipWorker - Job Failed" {
		t.Fatalf("title = %q", got.title)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}
	if got.body != "Compilation failed: Friday Night\nencoder exited" {
		t.Fatalf("body = %q", got.body)
	}
}

func TestNtfyServiceFormatsError(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New("queue database locked"), "claim"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if got.body != "Error with claim: queue database locked" {
		t.Fatalf("body = %q", got.body)
	}
	if got.tags != "clipworker,error,alert" {
		t.Fatalf("tags = %q", got.tags)
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobStarted = false
	cfg.Notifications.JobCompleted = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobStarted(context.Background(), "x", "gpu"); err != nil {
		t.Fatalf("NotifyJobStarted: %v", err)
	}
	if err := svc.NotifyJobCompleted(context.Background(), "x", time.Second); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if err := svc.NotifyJobFailed(context.Background(), "x", "boom"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
}
