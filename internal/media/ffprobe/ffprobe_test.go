package ffprobe_test

import (
	"context"
	"strings"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/media/ffprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/testsupport"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.480000", "format_name": "mp4"}
}`

func TestInspectParsesStreams(t *testing.T) {
	script := "#!/bin/sh\ncat <<'EOF'\n" + probeJSON + "\nEOF\n"
	testsupport.StubBinary(t, t.TempDir(), "ffprobe-stub", script)

	result, err := ffprobe.Inspect(context.Background(), "ffprobe-stub", "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	width, height := result.Dimensions()
	if width != 1920 || height != 1080 {
		t.Fatalf("dimensions = %dx%d", width, height)
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
	if got := result.DurationSeconds(); got != 12.48 {
		t.Fatalf("duration = %v", got)
	}
	stream, ok := result.VideoStream()
	if !ok || stream.CodecName != "h264" {
		t.Fatalf("video stream = %+v, %v", stream, ok)
	}
}

func TestInspectFailsOnToolError(t *testing.T) {
	script := "#!/bin/sh\necho 'No such file' >&2\nexit 1\n"
	testsupport.StubBinary(t, t.TempDir(), "ffprobe-stub", script)

	_, err := ffprobe.Inspect(context.Background(), "ffprobe-stub", "/tmp/missing.mp4")
	if err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
	if !strings.Contains(err.Error(), "No such file") {
		t.Fatalf("error should carry tool output, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
