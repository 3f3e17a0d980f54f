package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnqueueRequest describes a compilation job to insert plus the routing inputs
// used to choose its queue.
type EnqueueRequest struct {
	ProjectID   string
	ClipIDs     []string
	OptionsJSON string

	// PreferredQueues are tried in order; the first with a compatible active
	// worker wins. When none qualifies the job lands on the generic queue.
	PreferredQueues []string
	// CompatibleTags lists worker version tags the coordinator recognizes.
	CompatibleTags []string
	// ActiveSince is the cutoff for considering a worker's heartbeat fresh.
	ActiveSince time.Time
}

// Enqueue routes a new job onto a queue and inserts it as pending. Jobs are
// never dropped for lack of workers; they fall back to the generic queue.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) (*Job, error) {
	if req.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	if len(req.ClipIDs) == 0 {
		return nil, errors.New("clip ids are required")
	}

	queueName, err := s.RouteQueue(ctx, req.PreferredQueues, req.CompatibleTags, req.ActiveSince)
	if err != nil {
		return nil, err
	}

	clipIDsJSON, err := encodeClipIDs(req.ClipIDs)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            project_id, clip_ids_json, options_json, queue, status,
            created_at, updated_at, progress_percent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		req.ProjectID,
		clipIDsJSON,
		nullableString(req.OptionsJSON),
		queueName,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByProject returns jobs for a project ordered by creation time.
func (s *Store) FindByProject(ctx context.Context, projectID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("find by project: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	clipIDsJSON, err := encodeClipIDs(job.ClipIDs)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET project_id = ?, clip_ids_json = ?, options_json = ?, queue = ?, status = ?,
             worker_name = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
             encoder_note = ?, output_path = ?, thumbnail_path = ?, error_message = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.ProjectID,
		clipIDsJSON,
		nullableString(job.OptionsJSON),
		job.Queue,
		job.Status,
		nullableString(job.WorkerName),
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.EncoderNote),
		nullableString(job.OutputPath),
		nullableString(job.ThumbnailPath),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
