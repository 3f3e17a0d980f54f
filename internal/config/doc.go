// Package config loads, normalizes, and validates worker configuration from
// TOML files with environment variable overrides.
package config
