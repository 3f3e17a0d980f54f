package workerapi

// Project is the compilation target as known to the application.
type Project struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Clip is one selected clip in the caller-specified compilation order. Paths
// are canonical; the worker rebases them locally before rendering.
type Clip struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Game       string `json:"game"`
	Path       string `json:"path"`
	AvatarPath string `json:"avatar_path,omitempty"`
}

// Media describes a stored media file record.
type Media struct {
	ID              string  `json:"id"`
	Path            string  `json:"path"`
	Type            string  `json:"type"`
	Checksum        string  `json:"checksum,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
}

// TierLimits are the per-user limits enforced before rendering begins.
type TierLimits struct {
	MaxClipsPerCompilation int   `json:"max_clips_per_compilation"`
	MaxDurationSeconds     int   `json:"max_duration_seconds"`
	MaxRendersPerDay       int   `json:"max_renders_per_day"`
	StorageLimitBytes      int64 `json:"storage_limit_bytes"`
	Watermark              bool  `json:"watermark"`
}

// Quota is the user's current usage against their tier limits.
type Quota struct {
	RendersToday     int   `json:"renders_today"`
	StorageUsedBytes int64 `json:"storage_used_bytes"`
}

// CompilationContext is the single batched fetch a job starts from: project,
// clips in order, tier limits, and metadata for every referenced media file.
type CompilationContext struct {
	Project    Project          `json:"project"`
	Clips      []Clip           `json:"clips"`
	TierLimits TierLimits       `json:"tier_limits"`
	Media      map[string]Media `json:"media"`
}

// CreateMediaRequest records the finished compilation artifact. Path is
// canonical so no worker filesystem layout leaks into shared state.
type CreateMediaRequest struct {
	ProjectID       string  `json:"project_id"`
	Path            string  `json:"path"`
	Type            string  `json:"type"`
	Checksum        string  `json:"checksum,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
}

// JobUpdate reports job status and progress back to the application.
type JobUpdate struct {
	Status          string  `json:"status"`
	ProgressPercent float64 `json:"progress_percent"`
	Stage           string  `json:"stage,omitempty"`
	Message         string  `json:"message,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// ProjectStatusUpdate moves the project itself through its lifecycle, with
// canonical output locations once complete.
type ProjectStatusUpdate struct {
	Status        string `json:"status"`
	OutputPath    string `json:"output_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
}
