package stage

import (
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/jobspec"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

// ParseOptions parses a job options payload and returns the envelope.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParseOptions(raw string) (jobspec.Envelope, error) {
	env, err := jobspec.Parse(raw)
	if err != nil {
		return jobspec.Envelope{}, services.Wrap(
			services.ErrValidation, "stage", "parse job options",
			"Job options payload missing or invalid; re-enqueue the compilation", err)
	}
	return env, nil
}
