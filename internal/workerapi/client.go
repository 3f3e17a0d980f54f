package workerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

// HTTPDoer describes the HTTP client used by the worker API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the application's worker API. It is the worker's only channel
// to shared state; every call fails closed so a network or auth problem
// surfaces as an error rather than silent partial state.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// New constructs a worker API client from configuration. The base URL and
// bearer token are required; without them every job would fail mid-flight,
// so construction fails instead.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	token := strings.TrimSpace(cfg.API.Token)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workerapi", "new client", "API base URL is not configured", nil)
	}
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workerapi", "new client", "API token is not configured", nil)
	}

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "workerapi", method+" "+path, "worker API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "workerapi", method+" "+path, "decode worker API response", err)
	}
	return nil
}

func (c *Client) statusError(method, path string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(snippet))
	message := fmt.Sprintf("worker API returned %d", resp.StatusCode)
	if detail != "" {
		message += ": " + detail
	}

	marker := services.ErrTransient
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		marker = services.ErrConfiguration
	case resp.StatusCode == http.StatusNotFound:
		marker = services.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		marker = services.ErrQuota
	}
	return services.Wrap(marker, "workerapi", method+" "+path, message, nil)
}
