// Package ffmpeg builds and runs the encode invocations for compilation
// rendering: per-segment normalization with caption and avatar overlays,
// stream-copy concatenation via the concat demuxer, and thumbnail extraction.
package ffmpeg
