package jobspec_test

import (
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/jobspec"
)

func TestParseBlankReturnsEmptyEnvelope(t *testing.T) {
	env, err := jobspec.Parse("   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if env.BumperEnabled || len(env.TransitionIDs) != 0 {
		t.Fatalf("expected zero envelope, got %+v", env)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := jobspec.Parse("{not json"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	env := jobspec.Envelope{
		Title:         "Friday Night Clips",
		UserID:        "42",
		BumperEnabled: true,
		BumperID:      "7",
		TransitionIDs: []string{"3", "4"},
		Randomize:     true,
		Output:        jobspec.Output{Width: 1280, Height: 720, FPS: 30},
	}
	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parsed, err := jobspec.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Title != env.Title || parsed.UserID != env.UserID {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
	if len(parsed.TransitionIDs) != 2 || parsed.TransitionIDs[1] != "4" {
		t.Fatalf("transition ids = %v", parsed.TransitionIDs)
	}
	if parsed.Output.Width != 1280 || !parsed.Randomize {
		t.Fatalf("options mismatch: %+v", parsed)
	}
}
