package stage_test

import (
	"errors"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
)

func TestParseOptionsReturnsValidationError(t *testing.T) {
	_, err := stage.ParseOptions("{broken")
	if err == nil {
		t.Fatal("expected error for malformed options")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseOptionsAcceptsBlank(t *testing.T) {
	env, err := stage.ParseOptions("")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if env.BumperEnabled {
		t.Fatalf("expected zero envelope, got %+v", env)
	}
}
