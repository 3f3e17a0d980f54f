package deps

import "github.com/zebadrabbit/Clippy-Front-sub002/internal/config"

// Default returns the binary requirements for a configured worker. FFmpeg and
// FFprobe honor configured override paths; nvidia-smi is only informative
// since hardware encoding is verified with a trial encode at job time.
func Default(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Renders, concatenates, and thumbnails compilations",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Inspects media streams before encoding",
		},
		{
			Name:        "nvidia-smi",
			Command:     "nvidia-smi",
			Description: "NVIDIA driver tooling for GPU workers",
			Optional:    true,
		},
	}
}
