// Package ffprobe wraps the ffprobe CLI for media container inspection.
package ffprobe
