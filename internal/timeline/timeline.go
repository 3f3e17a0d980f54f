package timeline

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
)

// SegmentType identifies the role a segment plays in the compiled video.
type SegmentType string

const (
	SegmentIntro      SegmentType = "intro"
	SegmentOutro      SegmentType = "outro"
	SegmentClip       SegmentType = "clip"
	SegmentBumper     SegmentType = "bumper"
	SegmentTransition SegmentType = "transition"
)

// Overlay geometry applied to clip segments. The avatar is scaled to a fixed
// square and anchored bottom-left; render order is background box, caption
// text, then avatar so the avatar is never occluded by the caption box.
const (
	AvatarSize    = 96
	OverlayMargin = 24
)

// Overlay carries the caption and avatar parameters for one clip segment.
type Overlay struct {
	AuthorText string
	GameText   string
	AvatarPath string
	AvatarSize int
	Margin     int
}

// Segment is one entry in the ordered render timeline. Source is a canonical
// media path; the encode stage resolves it to a local path before rendering.
type Segment struct {
	Type    SegmentType
	ClipID  int64
	Source  string
	Label   string
	Overlay *Overlay
}

// Clip describes one selected clip in caller order.
type Clip struct {
	ID         int64
	Source     string
	Title      string
	Author     string
	Game       string
	AvatarPath string
}

// Config is the full description of what to render. Build consumes it and
// performs no I/O, so the timeline is fully specified before any encoding
// begins.
type Config struct {
	Clips         []Clip
	IntroPath     string
	OutroPath     string
	BumperPath    string
	BumperEnabled bool
	Transitions   []string
	Randomize     bool

	// Rand selects a transition index when Randomize is set. Defaults to
	// math/rand.Intn.
	Rand func(n int) int
}

// Build produces the ordered segment timeline for a compilation.
//
// The clip order given by the caller is preserved verbatim. The bumper, when
// enabled, precedes every clip except the very first segment of the timeline,
// and precedes the outro when one is present. Transitions are inserted
// between consecutive clips, before that clip's bumper, cycling through the
// configured set in order unless Randomize selects one at random per
// insertion point.
func Build(cfg Config) ([]Segment, error) {
	if len(cfg.Clips) == 0 {
		return nil, services.Wrap(services.ErrValidation, "timeline", "build", "empty selection: at least one clip is required", nil)
	}
	for i, clip := range cfg.Clips {
		if strings.TrimSpace(clip.Source) == "" {
			return nil, services.Wrap(services.ErrValidation, "timeline", "build", "clip "+clip.labelOrIndex(i)+" has no media source", nil)
		}
	}
	bumper := cfg.BumperEnabled
	if bumper && strings.TrimSpace(cfg.BumperPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "timeline", "build", "bumper enabled but no bumper media configured", nil)
	}

	pick := newTransitionPicker(cfg)
	segments := make([]Segment, 0, len(cfg.Clips)*3+4)

	if strings.TrimSpace(cfg.IntroPath) != "" {
		segments = append(segments, Segment{Type: SegmentIntro, Source: cfg.IntroPath, Label: "intro"})
	}

	for i, clip := range cfg.Clips {
		if i > 0 {
			if source, ok := pick(); ok {
				segments = append(segments, Segment{Type: SegmentTransition, Source: source, Label: "transition"})
			}
		}
		if bumper && len(segments) > 0 {
			segments = append(segments, Segment{Type: SegmentBumper, Source: cfg.BumperPath, Label: "bumper"})
		}
		segments = append(segments, Segment{
			Type:    SegmentClip,
			ClipID:  clip.ID,
			Source:  clip.Source,
			Label:   clip.labelOrIndex(i),
			Overlay: clip.overlay(),
		})
	}

	if strings.TrimSpace(cfg.OutroPath) != "" {
		if bumper {
			segments = append(segments, Segment{Type: SegmentBumper, Source: cfg.BumperPath, Label: "bumper"})
		}
		segments = append(segments, Segment{Type: SegmentOutro, Source: cfg.OutroPath, Label: "outro"})
	}

	return segments, nil
}

func (c Clip) labelOrIndex(i int) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return "clip " + strconv.Itoa(i+1)
}

func (c Clip) overlay() *Overlay {
	author := strings.TrimSpace(c.Author)
	game := strings.TrimSpace(c.Game)
	avatar := strings.TrimSpace(c.AvatarPath)
	if author == "" && game == "" && avatar == "" {
		return nil
	}
	return &Overlay{
		AuthorText: author,
		GameText:   game,
		AvatarPath: avatar,
		AvatarSize: AvatarSize,
		Margin:     OverlayMargin,
	}
}

// newTransitionPicker returns a selector over the configured transitions.
// With no transitions configured it always reports false. The deterministic
// default cycles through the set in order; Randomize draws per insertion.
func newTransitionPicker(cfg Config) func() (string, bool) {
	transitions := make([]string, 0, len(cfg.Transitions))
	for _, t := range cfg.Transitions {
		if strings.TrimSpace(t) != "" {
			transitions = append(transitions, t)
		}
	}
	if len(transitions) == 0 {
		return func() (string, bool) { return "", false }
	}

	if cfg.Randomize {
		pick := cfg.Rand
		if pick == nil {
			pick = rand.Intn
		}
		return func() (string, bool) {
			return transitions[pick(len(transitions))], true
		}
	}

	next := 0
	return func() (string, bool) {
		source := transitions[next%len(transitions)]
		next++
		return source, true
	}
}
