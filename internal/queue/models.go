package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a compilation job.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusEncodingSegments Status = "encoding_segments"
	StatusConcatenating    Status = "concatenating"
	StatusFinalizing       Status = "finalizing"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Worker stopped"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusEncodingSegments,
	StatusConcatenating,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusRunning:          {},
	StatusEncodingSegments: {},
	StatusConcatenating:    {},
	StatusFinalizing:       {},
}

var validTransitions = map[Status]map[Status]struct{}{
	StatusPending:          {StatusRunning: {}, StatusFailed: {}},
	StatusRunning:          {StatusEncodingSegments: {}, StatusFailed: {}, StatusPending: {}},
	StatusEncodingSegments: {StatusConcatenating: {}, StatusFailed: {}, StatusPending: {}},
	StatusConcatenating:    {StatusFinalizing: {}, StatusFailed: {}, StatusPending: {}},
	StatusFinalizing:       {StatusCompleted: {}, StatusFailed: {}, StatusPending: {}},
	StatusFailed:           {StatusPending: {}},
}

// CanTransition reports whether moving a job from one status to another is legal.
// Reverting an in-flight job to pending models queue redelivery after a stale
// claim; completed is terminal.
func CanTransition(from, to Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Job represents a compilation job persisted in SQLite.
type Job struct {
	ID              int64
	ProjectID       string
	ClipIDs         []string
	OptionsJSON     string
	Queue           string
	Status          Status
	WorkerName      string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	EncoderNote     string
	OutputPath      string
	ThumbnailPath   string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// Worker describes a registered worker in the coordinator registry.
type Worker struct {
	Name       string
	VersionTag string
	Queues     []string
	LastSeen   time.Time
}

// ServesQueue reports whether the worker polls the named queue.
func (w Worker) ServesQueue(queue string) bool {
	for _, q := range w.Queues {
		if q == queue {
			return true
		}
	}
	return false
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message and clears
// the heartbeat.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}
