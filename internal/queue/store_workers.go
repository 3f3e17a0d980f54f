package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// UpsertWorker registers a worker or refreshes its heartbeat and served queues.
// Workers self-report their version tag; the coordinator decides elsewhere
// whether that tag is compatible with routing.
func (s *Store) UpsertWorker(ctx context.Context, worker Worker) error {
	if worker.Name == "" {
		return fmt.Errorf("worker name is required")
	}
	queuesJSON, err := json.Marshal(worker.Queues)
	if err != nil {
		return fmt.Errorf("encode worker queues: %w", err)
	}
	lastSeen := worker.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now().UTC()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO workers (name, version_tag, queues_json, last_seen)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
             version_tag = excluded.version_tag,
             queues_json = excluded.queues_json,
             last_seen = excluded.last_seen`,
		worker.Name,
		worker.VersionTag,
		string(queuesJSON),
		lastSeen.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}

// Workers returns all registered workers ordered by name.
func (s *Store) Workers(ctx context.Context) ([]Worker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version_tag, queues_json, last_seen FROM workers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []Worker
	for rows.Next() {
		var (
			worker      Worker
			queuesJSON  string
			lastSeenRaw string
		)
		if err := rows.Scan(&worker.Name, &worker.VersionTag, &queuesJSON, &lastSeenRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(queuesJSON), &worker.Queues); err != nil {
			return nil, fmt.Errorf("decode queues for worker %s: %w", worker.Name, err)
		}
		if lastSeen, err := parseTimeString(lastSeenRaw); err == nil {
			worker.LastSeen = lastSeen
		}
		workers = append(workers, worker)
	}
	return workers, rows.Err()
}

// RemoveWorker deletes a worker from the registry.
func (s *Store) RemoveWorker(ctx context.Context, name string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM workers WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("remove worker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RouteQueue picks the queue a new job should land on. Preferred queues are
// tried in order; one qualifies when a worker with a recognized version tag
// and a fresh heartbeat serves it. Unrecognized worker versions are excluded
// from routing entirely. The generic queue is the unconditional fallback.
func (s *Store) RouteQueue(ctx context.Context, preferred []string, compatibleTags []string, activeSince time.Time) (string, error) {
	if len(preferred) == 0 {
		return QueueGeneric, nil
	}
	workers, err := s.Workers(ctx)
	if err != nil {
		return "", err
	}

	tagSet := make(map[string]struct{}, len(compatibleTags))
	for _, tag := range compatibleTags {
		tagSet[tag] = struct{}{}
	}

	for _, queue := range preferred {
		for _, worker := range workers {
			if _, recognized := tagSet[worker.VersionTag]; !recognized {
				continue
			}
			if worker.LastSeen.Before(activeSince) {
				continue
			}
			if worker.ServesQueue(queue) {
				return queue, nil
			}
		}
	}
	return QueueGeneric, nil
}

// QueueGeneric is the catch-all queue every worker serves.
const QueueGeneric = "generic"
