// Package models provides the core data structures shared by the compiler,
// the runner and the CLI.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Output geometry and timing defaults.
const (
	DefaultWidth             = 1920
	DefaultHeight            = 1080
	DefaultFps               = 30
	DefaultTransitionSeconds = 1.0
	DefaultSlideSeconds      = 3.0
	DefaultOutputFormat      = "mp4"

	MinTransitionSeconds = 0.1
	MinSegmentSeconds    = 0.5
)

// ProjectType distinguishes the two kinds of persisted project.
type ProjectType string

const (
	ProjectVideoCollage ProjectType = "VideoCollage"
	ProjectSlideShow    ProjectType = "SlideShow"
)

// MediaKind is the kind of a timeline segment.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// JoinMode selects how per-segment lanes are joined.
type JoinMode string

const (
	JoinCrossfade JoinMode = "crossfade"
	JoinConcat    JoinMode = "concat"
)

// JoinModeValues returns valid join modes.
func JoinModeValues() []string {
	return []string{string(JoinCrossfade), string(JoinConcat)}
}

// IsValidJoinMode checks if mode is a known join mode.
func IsValidJoinMode(mode string) bool {
	for _, valid := range JoinModeValues() {
		if mode == valid {
			return true
		}
	}
	return false
}

// MediaSegment is one video clip or still image placed on the timeline.
//
// DurationSeconds is user-assigned for images and filled in by the duration
// resolver for video clips. HasAudio is never persisted; it is resolved at
// compile time when the timeline derives its soundtrack from the clips.
type MediaSegment struct {
	Path            string    `json:"path"`
	Kind            MediaKind `json:"kind"`
	DurationSeconds float64   `json:"duration_seconds"`
	HasAudio        bool      `json:"-"`
}

// AudioItem is one source contributing to the soundtrack lane.
type AudioItem struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Timeline is the aggregate root of a project.
//
// The JSON form is the persisted project format. Items are in playback order.
type Timeline struct {
	Name       string         `json:"name"`
	Type       ProjectType    `json:"type"`
	Items      []MediaSegment `json:"items"`
	AudioItems []AudioItem    `json:"audio_items,omitempty"`

	// Legacy single soundtrack, folded into AudioItems at compile time.
	AudioPath            string  `json:"audio_path,omitempty"`
	AudioDurationSeconds float64 `json:"audio_duration_seconds,omitempty"`

	UseVideoAudio bool     `json:"use_video_audio"`
	OutputFormat  string   `json:"output_format"`
	Transition    JoinMode `json:"transition,omitempty"`

	Width                  int     `json:"width"`
	Height                 int     `json:"height"`
	Fps                    int     `json:"fps"`
	TransitionSeconds      float64 `json:"transition_seconds"`
	SlideDurationSeconds   float64 `json:"slide_duration_seconds"`
	MaxClipDurationSeconds float64 `json:"max_clip_duration_seconds"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTimeline creates an empty timeline with default geometry and timing.
func NewTimeline(name string, projectType ProjectType) *Timeline {
	return &Timeline{
		Name:                 name,
		Type:                 projectType,
		Items:                []MediaSegment{},
		UseVideoAudio:        true,
		OutputFormat:         DefaultOutputFormat,
		Transition:           JoinCrossfade,
		Width:                DefaultWidth,
		Height:               DefaultHeight,
		Fps:                  DefaultFps,
		TransitionSeconds:    DefaultTransitionSeconds,
		SlideDurationSeconds: DefaultSlideSeconds,
		CreatedAt:            time.Now().UTC(),
	}
}

// AddVideo appends a video clip. Its duration is resolved at compile time.
func (t *Timeline) AddVideo(path string) *Timeline {
	t.Items = append(t.Items, MediaSegment{Path: path, Kind: MediaVideo})
	return t
}

// AddImage appends a still image shown for the given number of seconds.
// A non-positive duration falls back to the slide duration at compile time.
func (t *Timeline) AddImage(path string, seconds float64) *Timeline {
	t.Items = append(t.Items, MediaSegment{Path: path, Kind: MediaImage, DurationSeconds: seconds})
	return t
}

// AddAudio appends an audio item. A non-positive duration is probed.
func (t *Timeline) AddAudio(path string, seconds float64) *Timeline {
	t.AudioItems = append(t.AudioItems, AudioItem{Path: path, DurationSeconds: seconds})
	return t
}

// Clone returns a deep copy so compilation never mutates the caller's value.
func (t *Timeline) Clone() *Timeline {
	c := *t
	c.Items = append([]MediaSegment(nil), t.Items...)
	c.AudioItems = append([]AudioItem(nil), t.AudioItems...)
	return &c
}

// Normalize clamps geometry and timing into their valid ranges.
//
// After Normalize: Width and Height are even and >= 2, Fps > 0,
// TransitionSeconds >= 0.1, SlideDurationSeconds > 0 and
// MaxClipDurationSeconds >= 0.
func (t *Timeline) Normalize() {
	t.Width = NormalizeEvenDimension(t.Width, DefaultWidth)
	t.Height = NormalizeEvenDimension(t.Height, DefaultHeight)

	if t.Fps <= 0 {
		t.Fps = DefaultFps
	}

	if t.TransitionSeconds <= 0 {
		t.TransitionSeconds = DefaultTransitionSeconds
	}
	t.TransitionSeconds = math.Max(MinTransitionSeconds, t.TransitionSeconds)

	if t.SlideDurationSeconds <= 0 {
		t.SlideDurationSeconds = DefaultSlideSeconds
	}

	if t.MaxClipDurationSeconds < 0 {
		t.MaxClipDurationSeconds = 0
	}

	t.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t.OutputFormat), "."))
	if t.OutputFormat == "" {
		t.OutputFormat = DefaultOutputFormat
	}

	if t.Transition == "" {
		t.Transition = JoinCrossfade
	}

	if t.Type == "" {
		t.Type = ProjectVideoCollage
	}
}

// ApplyImageDefaults fills still images that have no duration with the slide
// duration (at least 1 second) and enforces the 0.5 second image minimum.
func (t *Timeline) ApplyImageDefaults() {
	for i := range t.Items {
		item := &t.Items[i]
		if item.Kind != MediaImage {
			continue
		}
		if item.DurationSeconds <= 0 {
			item.DurationSeconds = math.Max(1, t.SlideDurationSeconds)
		}
		item.DurationSeconds = math.Max(MinSegmentSeconds, item.DurationSeconds)
	}
}

// EffectiveAudioItems returns the audio item list, folding the legacy
// AudioPath into a single item when the list is empty.
func (t *Timeline) EffectiveAudioItems() []AudioItem {
	if len(t.AudioItems) > 0 {
		return t.AudioItems
	}
	if strings.TrimSpace(t.AudioPath) != "" {
		return []AudioItem{{Path: t.AudioPath, DurationSeconds: t.AudioDurationSeconds}}
	}
	return nil
}

// SegmentDurations returns the segment durations in playback order.
func (t *Timeline) SegmentDurations() []float64 {
	durations := make([]float64, len(t.Items))
	for i, item := range t.Items {
		durations[i] = item.DurationSeconds
	}
	return durations
}

// ComposedDuration returns the length of the joined video lane.
//
// Concatenation sums the segment durations. Cross-fading overlaps each
// boundary by the transition length: sum - (N-1)*T, never below zero.
func (t *Timeline) ComposedDuration() float64 {
	return ComposedDuration(t.SegmentDurations(), t.Transition, t.TransitionSeconds)
}

// ComposedDuration computes the joined lane length for the given durations.
func ComposedDuration(durations []float64, mode JoinMode, transition float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}
	if mode == JoinConcat || len(durations) < 2 {
		return total
	}
	return math.Max(0, total-float64(len(durations)-1)*transition)
}

// Validate checks the structure of the timeline without touching the
// file system.
func (t *Timeline) Validate() error {
	if len(t.Items) == 0 {
		return NewValidationError("items", ErrEmptyTimeline)
	}

	for i, item := range t.Items {
		if strings.TrimSpace(item.Path) == "" {
			return NewValidationError(fmt.Sprintf("items[%d].path", i), ErrMissingFile)
		}
		if item.Kind != MediaVideo && item.Kind != MediaImage {
			return NewValidationError(fmt.Sprintf("items[%d].kind", i),
				fmt.Errorf("unknown media kind %q", item.Kind))
		}
	}

	for i, item := range t.AudioItems {
		if strings.TrimSpace(item.Path) == "" {
			return NewValidationError(fmt.Sprintf("audio_items[%d].path", i), ErrMissingFile)
		}
	}

	if t.Transition != "" && !IsValidJoinMode(string(t.Transition)) {
		return NewValidationError("transition",
			fmt.Errorf("invalid join mode '%s', must be one of: %s", t.Transition, strings.Join(JoinModeValues(), ", ")))
	}

	return nil
}

// NormalizeEvenDimension substitutes the default for non-positive values,
// rounds odd values down to even and never returns less than 2.
func NormalizeEvenDimension(value, defaultValue int) int {
	normalized := value
	if normalized <= 0 {
		normalized = defaultValue
	}
	if normalized%2 != 0 {
		normalized--
	}
	if normalized < 2 {
		return 2
	}
	return normalized
}
