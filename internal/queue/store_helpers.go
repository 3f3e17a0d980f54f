package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, project_id, clip_ids_json, options_json, queue, status, worker_name, progress_stage, progress_percent, progress_message, encoder_note, output_path, thumbnail_path, error_message, created_at, updated_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		projectID        string
		clipIDsJSON      string
		optionsJSON      sql.NullString
		queueName        string
		statusStr        string
		workerName       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		encoderNote      sql.NullString
		outputPath       sql.NullString
		thumbnailPath    sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&projectID,
		&clipIDsJSON,
		&optionsJSON,
		&queueName,
		&statusStr,
		&workerName,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&encoderNote,
		&outputPath,
		&thumbnailPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		ProjectID:       projectID,
		OptionsJSON:     optionsJSON.String,
		Queue:           queueName,
		Status:          Status(statusStr),
		WorkerName:      workerName.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		EncoderNote:     encoderNote.String,
		OutputPath:      outputPath.String,
		ThumbnailPath:   thumbnailPath.String,
		ErrorMessage:    errorMessage.String,
	}

	if err := json.Unmarshal([]byte(clipIDsJSON), &job.ClipIDs); err != nil {
		return nil, fmt.Errorf("decode clip ids for job %d: %w", id, err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func encodeClipIDs(clipIDs []string) (string, error) {
	if clipIDs == nil {
		clipIDs = []string{}
	}
	data, err := json.Marshal(clipIDs)
	if err != nil {
		return "", fmt.Errorf("encode clip ids: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// queueOrderClause builds a CASE expression ranking queues by the caller's
// priority order so a single SELECT can honor gpu > cpu > generic.
func queueOrderClause(queues []string) (string, []any) {
	if len(queues) == 0 {
		return "0", nil
	}
	var b strings.Builder
	b.WriteString("CASE queue")
	args := make([]any, 0, len(queues))
	for i, queue := range queues {
		b.WriteString(" WHEN ? THEN ")
		fmt.Fprintf(&b, "%d", i)
		args = append(args, queue)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(queues))
	return b.String(), args
}
