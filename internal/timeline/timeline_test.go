package timeline_test

import (
	"errors"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/timeline"
)

func clips(ids ...int64) []timeline.Clip {
	out := make([]timeline.Clip, 0, len(ids))
	for _, id := range ids {
		out = append(out, timeline.Clip{ID: id, Source: "/instance/uploads/clip.mp4"})
	}
	return out
}

func shape(t *testing.T, segments []timeline.Segment) []string {
	t.Helper()
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		out = append(out, string(seg.Type))
	}
	return out
}

func assertShape(t *testing.T, segments []timeline.Segment, want ...string) {
	t.Helper()
	got := shape(t, segments)
	if len(got) != len(want) {
		t.Fatalf("timeline shape %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timeline shape %v, want %v", got, want)
		}
	}
}

func TestBuildPreservesClipOrderWithoutExtras(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{Clips: clips(5, 2, 9)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, segments, "clip", "clip", "clip")
	for i, want := range []int64{5, 2, 9} {
		if segments[i].ClipID != want {
			t.Fatalf("segment %d clip id = %d, want %d", i, segments[i].ClipID, want)
		}
	}
}

func TestBuildRejectsEmptySelection(t *testing.T) {
	_, err := timeline.Build(timeline.Config{})
	if err == nil {
		t.Fatal("expected error for empty selection")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildBumperBetweenClipsOnly(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips:         clips(5, 2, 9),
		BumperEnabled: true,
		BumperPath:    "/instance/system/bumper.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// No bumper before the first segment and none trailing without an outro.
	assertShape(t, segments, "clip", "bumper", "clip", "bumper", "clip")
}

func TestBuildIntroOutroWithBumper(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips:         clips(1, 2),
		IntroPath:     "/instance/system/intro.mp4",
		OutroPath:     "/instance/system/outro.mp4",
		BumperEnabled: true,
		BumperPath:    "/instance/system/bumper.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, segments,
		"intro", "bumper", "clip", "bumper", "clip", "bumper", "outro")
}

func TestBuildCyclesTransitionsDeterministically(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips:       clips(1, 2, 3, 4),
		Transitions: []string{"/t/a.mp4", "/t/b.mp4"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, segments,
		"clip", "transition", "clip", "transition", "clip", "transition", "clip")

	var picked []string
	for _, seg := range segments {
		if seg.Type == timeline.SegmentTransition {
			picked = append(picked, seg.Source)
		}
	}
	want := []string{"/t/a.mp4", "/t/b.mp4", "/t/a.mp4"}
	for i := range want {
		if picked[i] != want[i] {
			t.Fatalf("transition cycle %v, want %v", picked, want)
		}
	}
}

func TestBuildRandomizeUsesInjectedSelector(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips:       clips(1, 2, 3),
		Transitions: []string{"/t/a.mp4", "/t/b.mp4", "/t/c.mp4"},
		Randomize:   true,
		Rand:        func(n int) int { return n - 1 },
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, seg := range segments {
		if seg.Type == timeline.SegmentTransition && seg.Source != "/t/c.mp4" {
			t.Fatalf("randomized pick = %q, want /t/c.mp4", seg.Source)
		}
	}
}

func TestBuildTransitionPrecedesBumper(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips:         clips(1, 2),
		BumperEnabled: true,
		BumperPath:    "/instance/system/bumper.mp4",
		Transitions:   []string{"/t/a.mp4"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, segments, "clip", "transition", "bumper", "clip")
}

func TestBuildAttachesOverlayParameters(t *testing.T) {
	segments, err := timeline.Build(timeline.Config{
		Clips: []timeline.Clip{
			{ID: 1, Source: "/instance/uploads/a.mp4", Author: "streamer", Game: "Tetris", AvatarPath: "/instance/avatars/s.png"},
			{ID: 2, Source: "/instance/uploads/b.mp4"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	overlay := segments[0].Overlay
	if overlay == nil {
		t.Fatal("expected overlay on annotated clip")
	}
	if overlay.AuthorText != "streamer" || overlay.GameText != "Tetris" {
		t.Fatalf("overlay text = %+v", overlay)
	}
	if overlay.AvatarSize != timeline.AvatarSize || overlay.Margin != timeline.OverlayMargin {
		t.Fatalf("overlay geometry = %+v", overlay)
	}
	if segments[1].Overlay != nil {
		t.Fatal("clip without metadata should carry no overlay")
	}
}

func TestBuildRejectsBumperWithoutMedia(t *testing.T) {
	_, err := timeline.Build(timeline.Config{Clips: clips(1), BumperEnabled: true})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
