package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/timeline"
)

// Settings are the normalized encode parameters applied to every segment so
// the concat step can stream-copy.
type Settings struct {
	Width        int
	Height       int
	FPS          int
	Codec        string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// RenderSpec describes one segment encode invocation.
type RenderSpec struct {
	Input    string
	Output   string
	HasAudio bool
	Overlay  *timeline.Overlay
	Settings Settings
}

const (
	audioSampleRate = "48000"
	captionFontSize = 28
	captionBoxAlpha = "0.55"
)

// buildRenderArgs assembles the full ffmpeg argument list for a segment.
// Inputs are ordered: source, then avatar image when overlaid, then a silent
// audio source when the input carries no audio track.
func buildRenderArgs(spec RenderSpec) []string {
	args := []string{"-hide_banner", "-v", "error", "-y", "-i", spec.Input}

	avatarIndex := -1
	if spec.Overlay != nil && spec.Overlay.AvatarPath != "" {
		avatarIndex = 1
		args = append(args, "-i", spec.Overlay.AvatarPath)
	}

	silenceIndex := -1
	if !spec.HasAudio {
		silenceIndex = 1
		if avatarIndex >= 0 {
			silenceIndex = 2
		}
		args = append(args,
			"-f", "lavfi",
			"-i", "anullsrc=channel_layout=stereo:sample_rate="+audioSampleRate)
	}

	graph, videoLabel := buildFilterGraph(spec, avatarIndex)
	args = append(args, "-filter_complex", graph, "-map", videoLabel)
	if silenceIndex >= 0 {
		args = append(args, "-map", strconv.Itoa(silenceIndex)+":a", "-shortest")
	} else {
		args = append(args, "-map", "0:a")
	}

	args = append(args, codecArgs(spec.Settings)...)
	args = append(args,
		"-r", strconv.Itoa(spec.Settings.FPS),
		"-c:a", spec.Settings.AudioCodec,
		"-b:a", spec.Settings.AudioBitrate,
		"-ar", audioSampleRate,
		"-ac", "2",
		"-movflags", "+faststart",
		spec.Output)
	return args
}

// buildFilterGraph normalizes the source to the target frame and frame rate,
// then layers the overlay in fixed order: background box, caption text,
// avatar. The avatar is composited last so the caption box never occludes it.
func buildFilterGraph(spec RenderSpec, avatarIndex int) (string, string) {
	s := spec.Settings
	w := strconv.Itoa(s.Width)
	h := strconv.Itoa(s.Height)

	var chains []string
	chains = append(chains, fmt.Sprintf(
		"[0:v]scale=%s:%s:force_original_aspect_ratio=decrease,pad=%s:%s:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[v0]",
		w, h, w, h, s.FPS))
	label := "[v0]"

	overlay := spec.Overlay
	if overlay == nil {
		return strings.Join(chains, ";"), label
	}

	margin := overlay.Margin
	size := overlay.AvatarSize
	caption := captionText(overlay)

	if caption != "" {
		boxHeight := size + margin
		chains = append(chains, fmt.Sprintf(
			"%sdrawbox=x=0:y=ih-%d:w=iw:h=%d:color=black@%s:t=fill[v1]",
			label, boxHeight, boxHeight, captionBoxAlpha))
		label = "[v1]"

		textX := margin
		if overlay.AvatarPath != "" {
			textX = margin*2 + size
		}
		chains = append(chains, fmt.Sprintf(
			"%sdrawtext=text='%s':fontcolor=white:fontsize=%d:x=%d:y=ih-%d[v2]",
			label, escapeDrawtext(caption), captionFontSize, textX, size/2+margin))
		label = "[v2]"
	}

	if avatarIndex >= 0 {
		chains = append(chains, fmt.Sprintf("[%d:v]scale=%d:%d[avatar]", avatarIndex, size, size))
		chains = append(chains, fmt.Sprintf(
			"%s[avatar]overlay=x=%d:y=main_h-%d[vout]",
			label, margin, size+margin))
		label = "[vout]"
	}

	return strings.Join(chains, ";"), label
}

func captionText(overlay *timeline.Overlay) string {
	switch {
	case overlay.AuthorText != "" && overlay.GameText != "":
		return overlay.AuthorText + " | " + overlay.GameText
	case overlay.AuthorText != "":
		return overlay.AuthorText
	default:
		return overlay.GameText
	}
}

func codecArgs(s Settings) []string {
	args := []string{"-c:v", s.Codec, "-pix_fmt", "yuv420p"}
	if strings.Contains(s.Codec, "nvenc") {
		// NVENC uses constant-quality mode rather than CRF.
		return append(args, "-preset", "p5", "-rc", "vbr", "-cq", strconv.Itoa(s.CRF))
	}
	return append(args, "-preset", s.Preset, "-crf", strconv.Itoa(s.CRF))
}

// escapeDrawtext escapes characters that terminate or alter a drawtext
// expression inside a single-quoted filter argument.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func buildConcatArgs(listPath, outputPath string) []string {
	return []string{
		"-hide_banner", "-v", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
}

func buildThumbnailArgs(inputPath, outputPath string, width int) []string {
	return []string{
		"-hide_banner", "-v", "error", "-y",
		"-ss", "00:00:01",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", width),
		"-q:v", "3",
		outputPath,
	}
}
