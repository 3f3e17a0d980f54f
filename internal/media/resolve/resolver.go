package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

// instanceSegment is the marker directory canonical paths are rebased on.
const instanceSegment = "instance"

// Resolver maps canonical media paths recorded by the web application onto
// this worker's local filesystem. Resolution is pure given filesystem state:
// the same canonical path resolves to the same local path until files move.
type Resolver struct {
	aliases      []config.Alias
	instanceRoot string
	statFn       func(string) (os.FileInfo, error)
}

// Option customizes resolver construction.
type Option func(*Resolver)

// WithStat overrides filesystem probing, primarily for tests.
func WithStat(statFn func(string) (os.FileInfo, error)) Option {
	return func(r *Resolver) {
		r.statFn = statFn
	}
}

// NewResolver builds a resolver from worker configuration. Alias rules are
// applied in configuration order before instance-root rebasing.
func NewResolver(cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{
		instanceRoot: cfg.Paths.InstanceRoot,
		statFn:       os.Stat,
	}
	r.aliases = append(r.aliases, cfg.Paths.Aliases...)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the local path for a canonical media path. The error names
// the canonical path so job failures can point at the missing media.
func (r *Resolver) Resolve(canonical string) (string, error) {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return "", services.Wrap(services.ErrValidation, "resolve", "", "empty media path", nil)
	}

	// A path that already exists locally is returned unchanged, which makes
	// resolution idempotent for workers sharing the application filesystem.
	if r.exists(canonical) {
		return canonical, nil
	}

	for _, alias := range r.aliases {
		if !strings.HasPrefix(canonical, alias.From) {
			continue
		}
		rest := strings.TrimPrefix(canonical, alias.From)
		candidate := filepath.Join(alias.To, filepath.FromSlash(strings.TrimLeft(rest, "/")))
		if r.exists(candidate) {
			return candidate, nil
		}
	}

	if candidate, ok := r.rebaseOnInstanceRoot(canonical); ok && r.exists(candidate) {
		return candidate, nil
	}

	return "", services.Wrap(services.ErrNotFound, "resolve", "",
		fmt.Sprintf("media file %s not found on this worker", canonical), nil)
}

// rebaseOnInstanceRoot splits the canonical path on its instance directory
// segment and grafts the remainder onto the configured instance root.
func (r *Resolver) rebaseOnInstanceRoot(canonical string) (string, bool) {
	if r.instanceRoot == "" || !r.dirExists(r.instanceRoot) {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(canonical), "/")
	for i, part := range parts {
		if part != instanceSegment || i == len(parts)-1 {
			continue
		}
		tail := filepath.FromSlash(strings.Join(parts[i+1:], "/"))
		return filepath.Join(r.instanceRoot, tail), true
	}
	return "", false
}

func (r *Resolver) exists(path string) bool {
	info, err := r.statFn(path)
	return err == nil && !info.IsDir()
}

func (r *Resolver) dirExists(path string) bool {
	info, err := r.statFn(path)
	return err == nil && info.IsDir()
}
