package jobspec

import (
	"encoding/json"
	"slices"
	"strings"
)

// Envelope captures the structured compilation options persisted with a
// queued job. The enqueuing side fills it from the user's project settings;
// the compile stage reads it when rendering.
type Envelope struct {
	Title         string         `json:"title,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	IntroID       string         `json:"intro_id,omitempty"`
	OutroID       string         `json:"outro_id,omitempty"`
	BumperID      string         `json:"bumper_id,omitempty"`
	BumperEnabled bool           `json:"bumper_enabled,omitempty"`
	TransitionIDs []string       `json:"transition_ids,omitempty"`
	Randomize     bool           `json:"randomize,omitempty"`
	Output        Output         `json:"output,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// Output carries per-job encode overrides. Zero values fall back to the
// worker's configured defaults.
type Output struct {
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	FPS          int    `json:"fps,omitempty"`
	VideoCodec   string `json:"video_codec,omitempty"`
	Preset       string `json:"preset,omitempty"`
	CRF          int    `json:"crf,omitempty"`
	AudioCodec   string `json:"audio_codec,omitempty"`
	AudioBitrate string `json:"audio_bitrate,omitempty"`
}

// Parse loads job options from JSON, returning an empty envelope on blank input.
func Parse(raw string) (Envelope, error) {
	var env Envelope
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return env, nil
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, err
	}
	env.TransitionIDs = slices.Clone(env.TransitionIDs)
	env.Attributes = cloneAttributes(env.Attributes)
	return env, nil
}

// Encode serialises the envelope to JSON.
func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func cloneAttributes(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
