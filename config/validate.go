package config

import (
	"fmt"
	"strings"

	"montage/command"
	"montage/models"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.RootPath) == "" {
		errors = append(errors, "root path is required")
	}

	if c.FFmpegPath == "" {
		errors = append(errors, "ffmpeg path is required")
	}
	if c.FFprobePath == "" {
		errors = append(errors, "ffprobe path is required")
	}

	// 0 is valid, means auto-detect
	if c.ProbeWorkers < 0 {
		errors = append(errors, "probe workers cannot be negative (use 0 for auto-detect)")
	}

	if c.ProbeTimeout <= 0 {
		errors = append(errors, "probe timeout must be positive")
	}

	if err := c.Timeline.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("timeline config: %v", err))
	}

	if err := c.Encoding.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("encoding config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if timeline defaults are valid
func (tc *TimelineConfig) Validate() error {
	var errors []string

	if tc.Width < 0 || tc.Height < 0 {
		errors = append(errors, "dimensions cannot be negative")
	}

	if tc.Fps < 0 {
		errors = append(errors, "fps cannot be negative")
	} else if tc.Fps > 240 {
		errors = append(errors, "fps cannot exceed 240")
	}

	if tc.TransitionSeconds < 0 {
		errors = append(errors, "transition seconds cannot be negative")
	}

	if tc.SlideDurationSeconds < 0 {
		errors = append(errors, "slide duration cannot be negative")
	}

	if tc.MaxClipDurationSeconds < 0 {
		errors = append(errors, "max clip duration cannot be negative (use 0 for unlimited)")
	}

	if !models.IsValidJoinMode(tc.JoinMode) {
		errors = append(errors, fmt.Sprintf("invalid join mode '%s', must be one of: %s",
			tc.JoinMode, strings.Join(models.JoinModeValues(), ", ")))
	}

	if !command.IsValidFormat(tc.OutputFormat) {
		errors = append(errors, fmt.Sprintf("invalid output format '%s', must be one of: %s",
			tc.OutputFormat, strings.Join(command.FormatValues(), ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if encoding settings are valid
func (ec *EncodingConfig) Validate() error {
	var errors []string

	if ec.Preset != "" && !IsValidPreset(ec.Preset) {
		errors = append(errors, fmt.Sprintf("invalid preset '%s', must be one of: %s",
			ec.Preset, strings.Join(PresetValues(), ", ")))
	}

	// 0 keeps the container default
	if ec.CRF < 0 || ec.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}

	if ec.AudioBitrate != "" && !isValidBitrate(ec.AudioBitrate) {
		errors = append(errors, "audio bitrate must look like 192k or 1M")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// isValidBitrate checks if a bitrate string is valid (e.g., "192k", "2M")
func isValidBitrate(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}

	var value float64
	var unit string
	if _, err := fmt.Sscanf(s, "%f%s", &value, &unit); err != nil {
		return false
	}
	return value > 0 && (unit == "k" || unit == "K" || unit == "m" || unit == "M")
}
