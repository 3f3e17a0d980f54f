package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Transition moves a job from one status to another atomically. It returns
// false when the job was not in the expected source status, which signals a
// concurrent writer won the race.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("transition job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Claim atomically moves the oldest pending job on the given queues to running
// and assigns it to the named worker. Queues are honored in the order given.
// Returns (nil, nil) when nothing is claimable.
func (s *Store) Claim(ctx context.Context, workerName string, queues ...string) (*Job, error) {
	if len(queues) == 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)

	orderExpr, orderArgs := queueOrderClause(queues)
	placeholders := makePlaceholders(len(queues))

	args := make([]any, 0, len(queues)*2+1)
	args = append(args, StatusPending)
	for _, queue := range queues {
		args = append(args, queue)
	}
	args = append(args, orderArgs...)

	query := `SELECT id FROM jobs WHERE status = ? AND queue IN (` + placeholders + `)
        ORDER BY ` + orderExpr + `, created_at LIMIT 1`

	// Claiming races against other worker processes sharing the database, so
	// the select and guarded update loop until one side wins or the queue
	// drains.
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		var id int64
		err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select claimable job: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, worker_name = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusRunning,
			workerName,
			now,
			now,
			id,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			return s.GetByID(ctx, id)
		}
	}
	return nil, nil
}

// UpdateProgress persists progress for a job, refusing regressions so queue
// redelivery can never roll a job's reported progress backwards. Returns false
// when the update was rejected.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage, message string, percent float64) (bool, error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET progress_stage = ?, progress_message = ?, progress_percent = ?, updated_at = ?
         WHERE id = ? AND progress_percent <= ?`,
		nullableString(stage),
		nullableString(message),
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		percent,
	)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetEncoderNote records the encoder decision (hardware codec or software
// fallback reason) on the job.
func (s *Store) SetEncoderNote(ctx context.Context, id int64, note string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET encoder_note = ?, updated_at = ? WHERE id = ?`,
		nullableString(note),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set encoder note: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a job with its artifact paths.
func (s *Store) MarkCompleted(ctx context.Context, id int64, outputPath, thumbnailPath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, output_path = ?, thumbnail_path = ?,
            progress_stage = 'Completed', progress_percent = 100, progress_message = NULL,
            error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ?`,
		StatusCompleted,
		nullableString(outputPath),
		nullableString(thumbnailPath),
		now,
		id,
	); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed moves a job to failed with the given error message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, progress_stage = 'Failed',
            progress_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		nullableString(message),
		now,
		id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns in-flight jobs whose heartbeats expired back
// to pending for redelivery. Completed work is not resumed mid-render; the
// claiming worker starts the pipeline over.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, worker_name = NULL,
            progress_stage = 'Reclaimed from stale worker', progress_percent = 0,
            progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		now,
		StatusRunning,
		StatusEncodingSegments,
		StatusConcatenating,
		StatusFinalizing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending for reprocessing. With no ids
// every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
            SET status = ?, worker_name = NULL, progress_stage = 'Retry requested',
                progress_percent = 0, progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, worker_name = NULL, progress_stage = 'Retry requested',
            progress_percent = 0, progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
