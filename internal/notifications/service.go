package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
)

const userAgent = "ClipWorker-Go/0.1.0"

// Service defines the notification surface exposed to the workflow manager.
type Service interface {
	NotifyJobStarted(ctx context.Context, title, queue string) error
	NotifyJobCompleted(ctx context.Context, title string, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, title, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		notifyStarted:   cfg.Notifications.JobStarted,
		notifyCompleted: cfg.Notifications.JobCompleted,
		notifyErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifyStarted   bool
	notifyCompleted bool
	notifyErrors    bool
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, title, queue string) error {
	if !n.notifyStarted {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "ClipWorker - Job Started",
		message: fmt.Sprintf("Started compiling: %s (%s queue)", title, queue),
		tags:    []string{"clipworker", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title string, duration time.Duration) error {
	if !n.notifyCompleted {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "ClipWorker - Job Complete",
		message: fmt.Sprintf("Compilation complete: %s in %s", strings.TrimSpace(title), duration),
		tags:    []string{"clipworker", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title, reason string) error {
	if !n.notifyErrors {
		return nil
	}
	data := payload{
		title:    "ClipWorker - Job Failed",
		message:  fmt.Sprintf("Compilation failed: %s\n%s", strings.TrimSpace(title), strings.TrimSpace(reason)),
		tags:     []string{"clipworker", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ClipWorker - Error",
		message:  builder.String(),
		tags:     []string{"clipworker", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ClipWorker - Test",
		message:  "Notification system test",
		tags:     []string{"clipworker", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, string) error            { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, time.Duration) error   { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
