package encoderprobe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/encoderprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/testsupport"
)

func TestProbeReturnsHardwareWhenTrialSucceeds(t *testing.T) {
	testsupport.StubBinary(t, t.TempDir(), "ffmpeg", "#!/bin/sh\nexit 0\n")

	prober := encoderprobe.NewProber(nil)
	decision := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	if !decision.Hardware() {
		t.Fatalf("expected hardware decision, got %+v", decision)
	}
	if decision.Codec != "h264_nvenc" {
		t.Fatalf("codec = %q", decision.Codec)
	}
	if decision.FallbackReason != "" {
		t.Fatalf("unexpected fallback reason %q", decision.FallbackReason)
	}
}

func TestProbeFallsBackToSoftwareOnTrialFailure(t *testing.T) {
	testsupport.StubBinary(t, t.TempDir(), "ffmpeg", "#!/bin/sh\necho 'Cannot load libnvidia-encode.so.1' >&2\nexit 1\n")

	prober := encoderprobe.NewProber(nil)
	decision := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	if decision.Hardware() {
		t.Fatal("expected software fallback")
	}
	if decision.Codec != "libx264" {
		t.Fatalf("codec = %q", decision.Codec)
	}
	if decision.FallbackReason == "" {
		t.Fatal("fallback reason must not be empty")
	}
	if !strings.Contains(decision.FallbackReason, "libnvidia-encode") {
		t.Fatalf("fallback reason should carry encoder output, got %q", decision.FallbackReason)
	}
}

func TestProbeSoftwarePreferenceSkipsTrial(t *testing.T) {
	prober := encoderprobe.NewProber(nil, encoderprobe.WithTrialRunner(func(context.Context, string, string) error {
		t.Fatal("trial should not run for software preference")
		return nil
	}))
	decision := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindSoftware)
	if decision.Hardware() {
		t.Fatal("expected software decision")
	}
}

func TestProbeForceSoftwareBypassesProbe(t *testing.T) {
	prober := encoderprobe.NewProber(nil,
		encoderprobe.WithForceSoftware(true),
		encoderprobe.WithTrialRunner(func(context.Context, string, string) error {
			t.Fatal("trial should not run when software is forced")
			return nil
		}))
	decision := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	if decision.Hardware() {
		t.Fatal("expected forced software decision")
	}
	if decision.FallbackReason == "" {
		t.Fatal("forced fallback should carry a reason")
	}
}

func TestProbeCachesDecisionUntilTTLExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	trials := 0
	prober := encoderprobe.NewProber(nil,
		encoderprobe.WithCacheTTL(time.Minute),
		encoderprobe.WithClock(func() time.Time { return now }),
		encoderprobe.WithTrialRunner(func(context.Context, string, string) error {
			trials++
			if trials == 1 {
				return nil
			}
			return errors.New("driver gone")
		}))

	first := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	second := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	if trials != 1 {
		t.Fatalf("trial ran %d times within TTL", trials)
	}
	if !first.Hardware() || !second.Hardware() {
		t.Fatalf("cached decision mismatch: %+v then %+v", first, second)
	}

	now = now.Add(2 * time.Minute)
	third := prober.Probe(context.Background(), "ffmpeg", encoderprobe.KindHardware)
	if trials != 2 {
		t.Fatalf("trial should re-run after TTL, ran %d times", trials)
	}
	if third.Hardware() {
		t.Fatal("expected fresh software decision after driver change")
	}
}

func TestProbeCacheKeyedByBinary(t *testing.T) {
	var binaries []string
	prober := encoderprobe.NewProber(nil,
		encoderprobe.WithTrialRunner(func(_ context.Context, binary, _ string) error {
			binaries = append(binaries, binary)
			return nil
		}))

	prober.Probe(context.Background(), "/usr/bin/ffmpeg", encoderprobe.KindHardware)
	prober.Probe(context.Background(), "/opt/ffmpeg/bin/ffmpeg", encoderprobe.KindHardware)
	if len(binaries) != 2 {
		t.Fatalf("expected one trial per binary, got %v", binaries)
	}
}
