package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"montage/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FFmpegPath != "ffmpeg" || cfg.FFprobePath != "ffprobe" {
		t.Errorf("Expected default binaries, got %s, %s", cfg.FFmpegPath, cfg.FFprobePath)
	}
	if cfg.ProbeTimeout != 15*time.Second {
		t.Errorf("Expected probe timeout 15s, got %s", cfg.ProbeTimeout)
	}
	if cfg.Timeline.Width != 1920 || cfg.Timeline.Height != 1080 || cfg.Timeline.Fps != 30 {
		t.Errorf("Expected 1920x1080@30, got %dx%d@%d", cfg.Timeline.Width, cfg.Timeline.Height, cfg.Timeline.Fps)
	}
	if cfg.Timeline.JoinMode != "crossfade" {
		t.Errorf("Expected crossfade join, got %s", cfg.Timeline.JoinMode)
	}
	if cfg.Timeline.OutputFormat != "mp4" {
		t.Errorf("Expected mp4, got %s", cfg.Timeline.OutputFormat)
	}

	// Defaults must validate as is
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to be valid, got %v", err)
	}
}

func TestConfigCopy(t *testing.T) {
	original := DefaultConfig()
	copied := original.Copy()

	copied.Timeline.Width = 640
	copied.Encoding.Preset = "slow"

	if original.Timeline.Width != 1920 {
		t.Error("Modifying copy changed original timeline config")
	}
	if original.Encoding.Preset != "" {
		t.Error("Modifying copy changed original encoding config")
	}
}

func TestTimelineConfig_ApplyDefaults(t *testing.T) {
	tc := DefaultConfig().Timeline
	tc.Width = 1280
	tc.Height = 720
	tc.MaxClipDurationSeconds = 10
	tc.JoinMode = "concat"

	tl := &models.Timeline{Name: "x", Fps: 25}
	tc.ApplyDefaults(tl)

	if tl.Width != 1280 || tl.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", tl.Width, tl.Height)
	}
	if tl.Fps != 25 {
		t.Errorf("Expected timeline fps to be kept, got %d", tl.Fps)
	}
	if tl.MaxClipDurationSeconds != 10 {
		t.Errorf("Expected max clip 10, got %v", tl.MaxClipDurationSeconds)
	}
	if tl.Transition != models.JoinConcat {
		t.Errorf("Expected concat, got %s", tl.Transition)
	}
	if tl.OutputFormat != "mp4" || tl.SlideDurationSeconds != 3 || tl.TransitionSeconds != 1 {
		t.Errorf("Unexpected defaults %+v", tl)
	}
}

func TestEncodingConfig_Overrides(t *testing.T) {
	ec := EncodingConfig{Preset: "slow", CRF: 18, AudioBitrate: "192k", Profile: "main", Level: "4.1"}
	o := ec.Overrides()

	if o.Preset != "slow" || o.CRF != 18 || o.AudioBitrate != "192k" || o.Profile != "main" || o.Level != "4.1" {
		t.Errorf("Unexpected overrides %+v", o)
	}
}

func TestIsValidPreset(t *testing.T) {
	for _, p := range PresetValues() {
		if !IsValidPreset(p) {
			t.Errorf("Expected %s to be valid", p)
		}
	}
	if IsValidPreset("turbo") {
		t.Error("Expected turbo to be invalid")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty root", func(c *Config) { c.RootPath = "" }, "root path is required"},
		{"no ffmpeg", func(c *Config) { c.FFmpegPath = "" }, "ffmpeg path is required"},
		{"no ffprobe", func(c *Config) { c.FFprobePath = "" }, "ffprobe path is required"},
		{"negative workers", func(c *Config) { c.ProbeWorkers = -1 }, "probe workers cannot be negative"},
		{"zero timeout", func(c *Config) { c.ProbeTimeout = 0 }, "probe timeout must be positive"},
		{"bad join", func(c *Config) { c.Timeline.JoinMode = "wipe" }, "invalid join mode 'wipe'"},
		{"bad format", func(c *Config) { c.Timeline.OutputFormat = "mov" }, "invalid output format 'mov'"},
		{"negative fps", func(c *Config) { c.Timeline.Fps = -1 }, "fps cannot be negative"},
		{"fps too high", func(c *Config) { c.Timeline.Fps = 500 }, "fps cannot exceed 240"},
		{"negative size", func(c *Config) { c.Timeline.Width = -2 }, "dimensions cannot be negative"},
		{"negative max clip", func(c *Config) { c.Timeline.MaxClipDurationSeconds = -1 }, "max clip duration cannot be negative"},
		{"bad preset", func(c *Config) { c.Encoding.Preset = "turbo" }, "invalid preset 'turbo'"},
		{"crf too high", func(c *Config) { c.Encoding.CRF = 60 }, "CRF must be between 0 and 51"},
		{"bad audio bitrate", func(c *Config) { c.Encoding.AudioBitrate = "loud" }, "audio bitrate must look like"},
		{"good audio bitrate", func(c *Config) { c.Encoding.AudioBitrate = "192k" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ProbeWorkers = 2
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FFmpegPath = ""
	cfg.ProbeTimeout = 0
	cfg.Encoding.CRF = 99

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:\n  - ") {
		t.Errorf("Unexpected error format: %s", msg)
	}
	if strings.Count(msg, "\n  - ") != 3 {
		t.Errorf("Expected 3 collected errors, got: %s", msg)
	}
}

func TestContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootPath = "/data"

	ctx := WithConfig(context.Background(), cfg)
	if got := FromContext(ctx); got.RootPath != "/data" {
		t.Errorf("Expected stored config, got root %s", got.RootPath)
	}

	if got := FromContext(context.Background()); got.RootPath != "." {
		t.Errorf("Expected default config from empty context, got root %s", got.RootPath)
	}
}
