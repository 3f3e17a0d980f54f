package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Encoder invokes ffmpeg for segment rendering, concatenation, and thumbnail
// extraction. A single Encoder is safe for concurrent use; each call runs one
// external process to completion.
type Encoder struct {
	binary string
	run    func(ctx context.Context, binary string, args []string) error
}

// Option customizes an Encoder.
type Option func(*Encoder)

// WithRunner overrides process execution, used by tests.
func WithRunner(run func(ctx context.Context, binary string, args []string) error) Option {
	return func(e *Encoder) {
		if run != nil {
			e.run = run
		}
	}
}

// NewEncoder constructs an Encoder around the given ffmpeg binary.
func NewEncoder(binary string, opts ...Option) *Encoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	e := &Encoder{binary: binary, run: runCommand}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderSegment encodes one timeline segment to a normalized intermediate
// file per the spec's settings and overlay.
func (e *Encoder) RenderSegment(ctx context.Context, spec RenderSpec) error {
	if strings.TrimSpace(spec.Input) == "" || strings.TrimSpace(spec.Output) == "" {
		return fmt.Errorf("render segment: input and output paths are required")
	}
	return e.run(ctx, e.binary, buildRenderArgs(spec))
}

// Concat joins the listed segment files by stream copy using the concat
// demuxer. All inputs must share identical stream parameters, which the
// per-segment normalization guarantees.
func (e *Encoder) Concat(ctx context.Context, listPath, outputPath string) error {
	return e.run(ctx, e.binary, buildConcatArgs(listPath, outputPath))
}

// Thumbnail extracts a single frame from the output video.
func (e *Encoder) Thumbnail(ctx context.Context, inputPath, outputPath string, width int) error {
	if width <= 0 {
		width = 640
	}
	return e.run(ctx, e.binary, buildThumbnailArgs(inputPath, outputPath, width))
}

// WriteConcatList writes a concat-demuxer list file naming the segment files
// in order. Paths are single-quoted with embedded quotes escaped.
func WriteConcatList(listPath string, segmentPaths []string) error {
	var b strings.Builder
	for _, path := range segmentPaths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(path, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", binary, err, tail(detail, 512))
		}
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}

// tail keeps the end of tool output, where ffmpeg reports the actual failure.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
