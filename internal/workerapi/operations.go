package workerapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CompilationContext fetches the project, ordered clip list, tier limits, and
// media metadata for a job in one round trip.
func (c *Client) CompilationContext(ctx context.Context, projectID, jobID string) (*CompilationContext, error) {
	query := url.Values{}
	query.Set("project_id", projectID)
	if strings.TrimSpace(jobID) != "" {
		query.Set("job_id", jobID)
	}
	var out CompilationContext
	if err := c.do(ctx, http.MethodGet, "/api/worker/compilation-context", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MediaBatch fetches metadata for the given media ids in one call.
func (c *Client) MediaBatch(ctx context.Context, ids []string) (map[string]Media, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	var out struct {
		Media map[string]Media `json:"media"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/worker/media", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Media, nil
}

// CreateMediaFile records the output artifact and returns the stored record.
func (c *Client) CreateMediaFile(ctx context.Context, req CreateMediaRequest) (*Media, error) {
	var out Media
	if err := c.do(ctx, http.MethodPost, "/api/worker/media", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateJob pushes job status and progress to the application.
func (c *Client) UpdateJob(ctx context.Context, jobID string, update JobUpdate) error {
	return c.do(ctx, http.MethodPut, "/api/worker/jobs/"+url.PathEscape(jobID), nil, update, nil)
}

// UpdateProjectStatus moves the project through its lifecycle.
func (c *Client) UpdateProjectStatus(ctx context.Context, projectID string, update ProjectStatusUpdate) error {
	return c.do(ctx, http.MethodPut, "/api/worker/projects/"+url.PathEscape(projectID)+"/status", nil, update, nil)
}

// Quota fetches the user's current usage.
func (c *Client) Quota(ctx context.Context, userID string) (*Quota, error) {
	var out Quota
	if err := c.do(ctx, http.MethodGet, "/api/worker/users/"+url.PathEscape(userID)+"/quota", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TierLimits fetches the limits for the user's subscription tier.
func (c *Client) TierLimits(ctx context.Context, userID string) (*TierLimits, error) {
	var out TierLimits
	if err := c.do(ctx, http.MethodGet, "/api/worker/users/"+url.PathEscape(userID)+"/tier-limits", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordRender increments the user's render counter after a completed job.
func (c *Client) RecordRender(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/worker/users/"+url.PathEscape(userID)+"/record-render", nil, nil, nil)
}
