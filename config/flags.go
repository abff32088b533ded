package config

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Flag names shared by the CLI and MergeFromFlags.
const (
	FlagConfig       = "config"
	FlagRoot         = "root"
	FlagFFmpeg       = "ffmpeg"
	FlagFFprobe      = "ffprobe"
	FlagProbeWorkers = "probe-workers"
	FlagProbeTimeout = "probe-timeout"
	FlagVerbose      = "verbose"
	FlagLogJSON      = "log-json"
	FlagDryRun       = "dry-run"

	FlagWidth           = "width"
	FlagHeight          = "height"
	FlagFps             = "fps"
	FlagTransition      = "transition"
	FlagSlideDuration   = "slide-duration"
	FlagMaxClipDuration = "max-clip-duration"
	FlagJoin            = "join"
	FlagFormat          = "format"

	FlagPreset       = "preset"
	FlagCRF          = "crf"
	FlagAudioBitrate = "audio-bitrate"
	FlagProfile      = "profile"
	FlagLevel        = "level"
)

// RegisterFlags defines every config-backed flag on fs. Defaults shown in
// help come from DefaultConfig; only flags the user sets override the
// config file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String(FlagConfig, "", "config file (default: $MONTAGE_CONFIG, ./montage.yaml, ~/.montage/config.yaml)")
	fs.String(FlagRoot, d.RootPath, "workspace root directory")
	fs.String(FlagFFmpeg, d.FFmpegPath, "ffmpeg binary")
	fs.String(FlagFFprobe, d.FFprobePath, "ffprobe binary")
	fs.Int(FlagProbeWorkers, d.ProbeWorkers, "concurrent duration probes (0 = auto-detect)")
	fs.Duration(FlagProbeTimeout, d.ProbeTimeout, "timeout of one ffprobe call")
	fs.BoolP(FlagVerbose, "v", d.Verbose, "verbose output")
	fs.Bool(FlagLogJSON, d.LogJSON, "JSON log output")
	fs.Bool(FlagDryRun, d.DryRun, "print the ffmpeg command without running it")

	fs.Int(FlagWidth, d.Timeline.Width, "output width")
	fs.Int(FlagHeight, d.Timeline.Height, "output height")
	fs.Int(FlagFps, d.Timeline.Fps, "output frame rate")
	fs.Float64(FlagTransition, d.Timeline.TransitionSeconds, "cross-fade duration in seconds")
	fs.Float64(FlagSlideDuration, d.Timeline.SlideDurationSeconds, "default image duration in seconds")
	fs.Float64(FlagMaxClipDuration, d.Timeline.MaxClipDurationSeconds, "maximum video clip duration in seconds (0 = unlimited)")
	fs.String(FlagJoin, d.Timeline.JoinMode, "join mode: crossfade, concat")
	fs.String(FlagFormat, d.Timeline.OutputFormat, "output container: mp4, mkv, avi, webm")

	fs.String(FlagPreset, d.Encoding.Preset, "x264 preset (default: container default)")
	fs.Int(FlagCRF, d.Encoding.CRF, "constant rate factor (0 = container default)")
	fs.String(FlagAudioBitrate, d.Encoding.AudioBitrate, "audio bitrate, e.g. 192k")
	fs.String(FlagProfile, d.Encoding.Profile, "x264 profile")
	fs.String(FlagLevel, d.Encoding.Level, "x264 level")
}

// MergeFromFlags overrides config values with the flags explicitly set on
// fs. Flags that are not defined on fs are ignored.
func (c *Config) MergeFromFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		return err == nil && fs.Lookup(name) != nil && fs.Changed(name)
	}

	if changed(FlagRoot) {
		c.RootPath, err = fs.GetString(FlagRoot)
	}
	if changed(FlagFFmpeg) {
		c.FFmpegPath, err = fs.GetString(FlagFFmpeg)
	}
	if changed(FlagFFprobe) {
		c.FFprobePath, err = fs.GetString(FlagFFprobe)
	}
	if changed(FlagProbeWorkers) {
		c.ProbeWorkers, err = fs.GetInt(FlagProbeWorkers)
	}
	if changed(FlagProbeTimeout) {
		c.ProbeTimeout, err = fs.GetDuration(FlagProbeTimeout)
	}
	if changed(FlagVerbose) {
		c.Verbose, err = fs.GetBool(FlagVerbose)
	}
	if changed(FlagLogJSON) {
		c.LogJSON, err = fs.GetBool(FlagLogJSON)
	}
	if changed(FlagDryRun) {
		c.DryRun, err = fs.GetBool(FlagDryRun)
	}

	// Timeline defaults
	if changed(FlagWidth) {
		c.Timeline.Width, err = fs.GetInt(FlagWidth)
	}
	if changed(FlagHeight) {
		c.Timeline.Height, err = fs.GetInt(FlagHeight)
	}
	if changed(FlagFps) {
		c.Timeline.Fps, err = fs.GetInt(FlagFps)
	}
	if changed(FlagTransition) {
		c.Timeline.TransitionSeconds, err = fs.GetFloat64(FlagTransition)
	}
	if changed(FlagSlideDuration) {
		c.Timeline.SlideDurationSeconds, err = fs.GetFloat64(FlagSlideDuration)
	}
	if changed(FlagMaxClipDuration) {
		c.Timeline.MaxClipDurationSeconds, err = fs.GetFloat64(FlagMaxClipDuration)
	}
	if changed(FlagJoin) {
		c.Timeline.JoinMode, err = fs.GetString(FlagJoin)
	}
	if changed(FlagFormat) {
		c.Timeline.OutputFormat, err = fs.GetString(FlagFormat)
	}

	// Encoding
	if changed(FlagPreset) {
		c.Encoding.Preset, err = fs.GetString(FlagPreset)
	}
	if changed(FlagCRF) {
		c.Encoding.CRF, err = fs.GetInt(FlagCRF)
	}
	if changed(FlagAudioBitrate) {
		c.Encoding.AudioBitrate, err = fs.GetString(FlagAudioBitrate)
	}
	if changed(FlagProfile) {
		c.Encoding.Profile, err = fs.GetString(FlagProfile)
	}
	if changed(FlagLevel) {
		c.Encoding.Level, err = fs.GetString(FlagLevel)
	}

	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}

// PrintConfig prints the effective configuration
func (c *Config) PrintConfig(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                 Effective Configuration                  ")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Root:           %s\n", c.RootPath)
	fmt.Fprintf(w, "FFmpeg:         %s\n", c.FFmpegPath)
	fmt.Fprintf(w, "FFprobe:        %s\n", c.FFprobePath)
	fmt.Fprintf(w, "Probe Workers:  %d\n", c.ProbeWorkers)
	fmt.Fprintf(w, "Probe Timeout:  %s\n", c.ProbeTimeout)

	fmt.Fprintln(w, "\nTimeline Defaults:")
	fmt.Fprintf(w, "  Size:         %dx%d @ %d fps\n", c.Timeline.Width, c.Timeline.Height, c.Timeline.Fps)
	fmt.Fprintf(w, "  Transition:   %gs (%s)\n", c.Timeline.TransitionSeconds, c.Timeline.JoinMode)
	fmt.Fprintf(w, "  Slide:        %gs\n", c.Timeline.SlideDurationSeconds)
	if c.Timeline.MaxClipDurationSeconds > 0 {
		fmt.Fprintf(w, "  Max Clip:     %gs\n", c.Timeline.MaxClipDurationSeconds)
	}
	fmt.Fprintf(w, "  Format:       %s\n", c.Timeline.OutputFormat)

	fmt.Fprintln(w, "\nEncoding:")
	if c.Encoding.Preset != "" {
		fmt.Fprintf(w, "  Preset:       %s\n", c.Encoding.Preset)
	}
	if c.Encoding.CRF > 0 {
		fmt.Fprintf(w, "  CRF:          %d\n", c.Encoding.CRF)
	}
	if c.Encoding.AudioBitrate != "" {
		fmt.Fprintf(w, "  Audio:        %s\n", c.Encoding.AudioBitrate)
	}
	if c.Encoding.Profile != "" || c.Encoding.Level != "" {
		fmt.Fprintf(w, "  Profile:      %s %s\n", c.Encoding.Profile, c.Encoding.Level)
	}

	fmt.Fprintln(w, "\nBehavioral Flags:")
	fmt.Fprintf(w, "  Verbose:      %v\n", c.Verbose)
	fmt.Fprintf(w, "  JSON Logs:    %v\n", c.LogJSON)
	fmt.Fprintf(w, "  Dry Run:      %v\n", c.DryRun)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}
