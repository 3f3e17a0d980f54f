package compile

import (
	"context"
	"log/slog"
	"os/exec"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/encoderprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/ffmpeg"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/media/ffprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/media/resolve"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

// API is the slice of the worker API the compile stage uses.
type API interface {
	CompilationContext(ctx context.Context, projectID, jobID string) (*workerapi.CompilationContext, error)
	Quota(ctx context.Context, userID string) (*workerapi.Quota, error)
	CreateMediaFile(ctx context.Context, req workerapi.CreateMediaRequest) (*workerapi.Media, error)
	UpdateJob(ctx context.Context, jobID string, update workerapi.JobUpdate) error
	UpdateProjectStatus(ctx context.Context, projectID string, update workerapi.ProjectStatusUpdate) error
	RecordRender(ctx context.Context, userID string) error
}

// Renderer abstracts the ffmpeg invocations so tests can fake the encoder.
type Renderer interface {
	RenderSegment(ctx context.Context, spec ffmpeg.RenderSpec) error
	Concat(ctx context.Context, listPath, outputPath string) error
	Thumbnail(ctx context.Context, inputPath, outputPath string, width int) error
}

// Prober decides between hardware and software encoding.
type Prober interface {
	Probe(ctx context.Context, binary string, preferred encoderprobe.Kind) encoderprobe.Decision
}

// Resolver rebases canonical media paths onto the local filesystem.
type Resolver interface {
	Resolve(canonical string) (string, error)
}

// Inspector reads container metadata from a local media file.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Compiler renders a compilation job end to end. It implements stage.Handler
// for the workflow manager.
type Compiler struct {
	cfg      *config.Config
	store    *queue.Store
	api      API
	renderer Renderer
	prober   Prober
	resolver Resolver
	inspect  Inspector
	logger   *slog.Logger
}

// Option customizes a Compiler, mainly for tests.
type Option func(*Compiler)

// WithRenderer overrides the encoder invocations.
func WithRenderer(r Renderer) Option {
	return func(c *Compiler) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithProber overrides the capability probe.
func WithProber(p Prober) Option {
	return func(c *Compiler) {
		if p != nil {
			c.prober = p
		}
	}
}

// WithResolver overrides media path resolution.
func WithResolver(r Resolver) Option {
	return func(c *Compiler) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithInspector overrides media inspection.
func WithInspector(i Inspector) Option {
	return func(c *Compiler) {
		if i != nil {
			c.inspect = i
		}
	}
}

// New constructs the compile stage with production collaborators built from
// configuration.
func New(cfg *config.Config, store *queue.Store, api API, logger *slog.Logger, opts ...Option) *Compiler {
	c := &Compiler{
		cfg:      cfg,
		store:    store,
		api:      api,
		renderer: ffmpeg.NewEncoder(cfg.FFmpegBinary()),
		prober: encoderprobe.NewProber(logger,
			encoderprobe.WithHardwareCodec(cfg.Encoder.HardwareCodec),
			encoderprobe.WithForceSoftware(cfg.Encoder.ForceSoftware),
			encoderprobe.WithCacheTTL(probeCacheTTL(cfg))),
		resolver: resolve.NewResolver(cfg),
		inspect:  ffprobe.Inspect,
		logger:   logging.NewComponentLogger(logger, "compile"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare verifies the job parses before any rendering work begins.
func (c *Compiler) Prepare(ctx context.Context, job *queue.Job) error {
	_, err := stage.ParseOptions(job.OptionsJSON)
	return err
}

// HealthCheck reports whether the stage's external collaborators are usable.
func (c *Compiler) HealthCheck(ctx context.Context) stage.Health {
	const name = "compile"
	if _, err := exec.LookPath(c.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, "ffmpeg not found: "+err.Error())
	}
	if _, err := exec.LookPath(c.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, "ffprobe not found: "+err.Error())
	}
	return stage.Healthy(name)
}
