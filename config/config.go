package config

import (
	"context"
	"time"

	"montage/command"
	"montage/models"
)

// Config holds all montage configuration options
type Config struct {
	// Workspace root holding TrackManager/{Queue,Processed,Projects}
	RootPath string `yaml:"root_path"`

	// External binaries
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Duration probing
	ProbeWorkers int           `yaml:"probe_workers"` // 0 = auto-detect
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // per ffprobe call

	// Timeline defaults for fields a project leaves unset
	Timeline TimelineConfig `yaml:"timeline"`

	// Encoder quality overrides
	Encoding EncodingConfig `yaml:"encoding"`

	// Behavioral flags
	Verbose bool `yaml:"verbose"`  // Show debug logs
	LogJSON bool `yaml:"log_json"` // Structured JSON logs instead of console output
	DryRun  bool `yaml:"dry_run"`  // Print the plan without running ffmpeg
}

// TimelineConfig holds output geometry and timing defaults
type TimelineConfig struct {
	Width                  int     `yaml:"width"`
	Height                 int     `yaml:"height"`
	Fps                    int     `yaml:"fps"`
	TransitionSeconds      float64 `yaml:"transition_seconds"`
	SlideDurationSeconds   float64 `yaml:"slide_duration_seconds"`
	MaxClipDurationSeconds float64 `yaml:"max_clip_duration_seconds"` // 0 = unlimited
	JoinMode               string  `yaml:"join_mode"`                 // "crossfade" or "concat"
	OutputFormat           string  `yaml:"output_format"`             // mp4, mkv, avi, webm
}

// EncodingConfig holds encoder quality settings. Empty values keep the
// container defaults.
type EncodingConfig struct {
	Preset       string `yaml:"preset"`        // x264 preset, e.g. "medium", "slow"
	CRF          int    `yaml:"crf"`           // 0 = container default
	AudioBitrate string `yaml:"audio_bitrate"` // e.g. "192k", "320k"
	Profile      string `yaml:"profile"`       // x264 profile, e.g. "high"
	Level        string `yaml:"level"`         // x264 level, e.g. "4.0"
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RootPath: ".",

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		ProbeWorkers: 0,                // Auto-detect CPU count
		ProbeTimeout: 15 * time.Second, // Generous for network mounts

		Timeline: TimelineConfig{
			Width:                  models.DefaultWidth,
			Height:                 models.DefaultHeight,
			Fps:                    models.DefaultFps,
			TransitionSeconds:      models.DefaultTransitionSeconds,
			SlideDurationSeconds:   models.DefaultSlideSeconds,
			MaxClipDurationSeconds: 0,
			JoinMode:               string(models.JoinCrossfade),
			OutputFormat:           models.DefaultOutputFormat,
		},

		// Empty encoding keeps the per-container defaults
		Encoding: EncodingConfig{},

		Verbose: false,
		LogJSON: false,
		DryRun:  false,
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	copy.Timeline = c.Timeline
	copy.Encoding = c.Encoding
	return &copy
}

// ApplyDefaults fills the fields a timeline leaves at zero with the
// configured defaults.
func (t TimelineConfig) ApplyDefaults(tl *models.Timeline) {
	if tl.Width <= 0 {
		tl.Width = t.Width
	}
	if tl.Height <= 0 {
		tl.Height = t.Height
	}
	if tl.Fps <= 0 {
		tl.Fps = t.Fps
	}
	if tl.TransitionSeconds <= 0 {
		tl.TransitionSeconds = t.TransitionSeconds
	}
	if tl.SlideDurationSeconds <= 0 {
		tl.SlideDurationSeconds = t.SlideDurationSeconds
	}
	if tl.MaxClipDurationSeconds <= 0 {
		tl.MaxClipDurationSeconds = t.MaxClipDurationSeconds
	}
	if tl.Transition == "" {
		tl.Transition = models.JoinMode(t.JoinMode)
	}
	if tl.OutputFormat == "" {
		tl.OutputFormat = t.OutputFormat
	}
}

// Overrides converts the encoding settings for the serializer.
func (e EncodingConfig) Overrides() command.EncodingOverrides {
	return command.EncodingOverrides{
		Preset:       e.Preset,
		CRF:          e.CRF,
		AudioBitrate: e.AudioBitrate,
		Profile:      e.Profile,
		Level:        e.Level,
	}
}

// PresetValues returns valid x264 presets
func PresetValues() []string {
	return []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}
}

// IsValidPreset checks if preset is a known x264 preset
func IsValidPreset(preset string) bool {
	for _, valid := range PresetValues() {
		if preset == valid {
			return true
		}
	}
	return false
}

type contextKey struct{}

var configKey = contextKey{}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return DefaultConfig()
}
