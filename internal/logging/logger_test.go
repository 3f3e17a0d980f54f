package logging_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestComponentLoggerFallsBackToNop(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "queue")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("should not panic")
}

func TestWithContextAddsJobFields(t *testing.T) {
	var records []slog.Record
	handler := &captureHandler{records: &records}
	logger := slog.New(handler)

	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithStage(ctx, "encoding_segments")
	ctx = services.WithQueue(ctx, "gpu")

	logging.WithContext(ctx, logger).Info("claimed")

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := map[string]string{}
	records[0].Attrs(func(a slog.Attr) bool {
		got[a.Key] = a.Value.String()
		return true
	})
	for _, a := range handler.attrs {
		got[a.Key] = a.Value.String()
	}
	if got[logging.FieldJobID] != "42" {
		t.Errorf("job_id = %q, want 42", got[logging.FieldJobID])
	}
	if got[logging.FieldStage] != "encoding_segments" {
		t.Errorf("stage = %q, want encoding_segments", got[logging.FieldStage])
	}
	if got[logging.FieldQueue] != "gpu" {
		t.Errorf("queue = %q, want gpu", got[logging.FieldQueue])
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	logger := logging.NewNop()
	if got := logging.WithContext(context.Background(), logger); got != logger {
		t.Fatal("expected identical logger when context carries no fields")
	}
}

func TestConsoleHandlerIncludesComponentPrefix(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/clipworker.log"
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.NewComponentLogger(logger, "workflow").Info("poll tick", logging.Int("claimed", 0))

	data := readFile(t, path)
	if !strings.Contains(data, "workflow: poll tick") {
		t.Fatalf("expected component prefix in output, got %q", data)
	}
	if !strings.Contains(data, "claimed=0") {
		t.Fatalf("expected key=value attr in output, got %q", data)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

type captureHandler struct {
	records *[]slog.Record
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	*h.records = append(*h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &captureHandler{records: h.records}
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return clone
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }
