package encoderprobe

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
)

// Kind identifies an encoder implementation class.
type Kind string

const (
	// KindHardware selects a vendor hardware encoder such as NVENC.
	KindHardware Kind = "hardware"
	// KindSoftware selects the CPU encoder.
	KindSoftware Kind = "software"
)

// Decision is the outcome of a capability probe. Downstream encode dispatch
// switches on Kind; a hardware failure is represented here as a software
// decision with a FallbackReason, never as an error.
type Decision struct {
	Kind           Kind
	Codec          string
	FallbackReason string
}

// Hardware reports whether the decision selects a hardware encoder.
func (d Decision) Hardware() bool {
	return d.Kind == KindHardware
}

const (
	defaultHardwareCodec = "h264_nvenc"
	defaultSoftwareCodec = "libx264"
	defaultCacheTTL      = 5 * time.Minute
	trialTimeout         = 15 * time.Second
)

// Prober runs trial encodes to decide between hardware and software encoding.
// Results are cached briefly so a batch of jobs does not re-probe for every
// job, while still noticing driver changes between batches.
type Prober struct {
	logger        *slog.Logger
	hardwareCodec string
	softwareCodec string
	forceSoftware bool
	ttl           time.Duration
	now           func() time.Time
	runTrial      func(ctx context.Context, binary, codec string) error

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	decision Decision
	expires  time.Time
}

// Option customizes a Prober.
type Option func(*Prober)

// WithHardwareCodec overrides the hardware encoder probed for.
func WithHardwareCodec(codec string) Option {
	return func(p *Prober) {
		if strings.TrimSpace(codec) != "" {
			p.hardwareCodec = codec
		}
	}
}

// WithSoftwareCodec overrides the software encoder returned on fallback.
func WithSoftwareCodec(codec string) Option {
	return func(p *Prober) {
		if strings.TrimSpace(codec) != "" {
			p.softwareCodec = codec
		}
	}
}

// WithForceSoftware skips probing and always decides for the software encoder.
func WithForceSoftware(force bool) Option {
	return func(p *Prober) {
		p.forceSoftware = force
	}
}

// WithCacheTTL overrides how long a probe decision is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *Prober) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock overrides the time source for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTrialRunner overrides the trial-encode execution.
func WithTrialRunner(run func(ctx context.Context, binary, codec string) error) Option {
	return func(p *Prober) {
		if run != nil {
			p.runTrial = run
		}
	}
}

// NewProber constructs a Prober with the given options.
func NewProber(logger *slog.Logger, opts ...Option) *Prober {
	p := &Prober{
		logger:        logging.NewComponentLogger(logger, "encoderprobe"),
		hardwareCodec: defaultHardwareCodec,
		softwareCodec: defaultSoftwareCodec,
		ttl:           defaultCacheTTL,
		now:           time.Now,
		runTrial:      runTrialEncode,
		cache:         make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe decides which encoder to use for the given ffmpeg binary. It never
// returns an error. When the preferred kind is software, or hardware is
// force-disabled, the software encoder is chosen without running ffmpeg.
// Otherwise a minimal trial encode validates that the hardware encoder
// initializes; any failure falls back to software with the reason recorded.
func (p *Prober) Probe(ctx context.Context, binary string, preferred Kind) Decision {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}

	if p.forceSoftware {
		return Decision{Kind: KindSoftware, Codec: p.softwareCodec, FallbackReason: "hardware encoding disabled by configuration"}
	}
	if preferred != KindHardware {
		return Decision{Kind: KindSoftware, Codec: p.softwareCodec}
	}

	key := binary + "|" + p.hardwareCodec
	now := p.now()

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && now.Before(entry.expires) {
		p.mu.Unlock()
		return entry.decision
	}
	p.mu.Unlock()

	decision := p.trialDecision(ctx, binary)

	p.mu.Lock()
	p.cache[key] = cacheEntry{decision: decision, expires: now.Add(p.ttl)}
	p.mu.Unlock()

	return decision
}

func (p *Prober) trialDecision(ctx context.Context, binary string) Decision {
	trialCtx, cancel := context.WithTimeout(ctx, trialTimeout)
	defer cancel()

	if err := p.runTrial(trialCtx, binary, p.hardwareCodec); err != nil {
		reason := fmt.Sprintf("trial encode with %s failed: %v", p.hardwareCodec, err)
		p.logger.Info("hardware encoder unavailable, using software",
			"hardware_codec", p.hardwareCodec,
			"software_codec", p.softwareCodec,
			"reason", reason)
		return Decision{Kind: KindSoftware, Codec: p.softwareCodec, FallbackReason: reason}
	}

	p.logger.Debug("hardware encoder available", "codec", p.hardwareCodec)
	return Decision{Kind: KindHardware, Codec: p.hardwareCodec}
}

// runTrialEncode encodes two frames of synthetic video through the candidate
// encoder and discards the output. A small but valid frame size avoids false
// negatives from encoders that reject tiny inputs.
func runTrialEncode(ctx context.Context, binary, codec string) error {
	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-v", "error",
		"-f", "lavfi", "-i", "color=c=black:s=320x180:d=0.2",
		"-pix_fmt", "yuv420p",
		"-c:v", codec,
		"-frames:v", "2",
		"-f", "null", "-")
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
