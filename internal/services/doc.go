// Package services defines the shared error taxonomy and context annotations
// used across the compilation pipeline. Stage code wraps failures with one of
// the sentinel markers so callers can classify them without string matching.
package services
