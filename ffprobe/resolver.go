package ffprobe

import (
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single ffprobe call.
const DefaultTimeout = 15 * time.Second

// RunFunc executes name with args and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Resolver answers duration and audio-presence queries about media files.
//
// Resolution never fails: every error degrades to the "unknown" answer
// (0 seconds, no audio) and is logged at debug level.
type Resolver struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
	run     RunFunc
}

// NewResolver creates a resolver invoking the given ffprobe binary.
func NewResolver(binary string, timeout time.Duration, logger zerolog.Logger) *Resolver {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		binary:  binary,
		timeout: timeout,
		logger:  logger,
		run:     execOutput,
	}
}

// WithRunFunc replaces the subprocess runner. Used by tests.
func (r *Resolver) WithRunFunc(run RunFunc) *Resolver {
	r.run = run
	return r
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (r *Resolver) query(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.run(ctx, r.binary, args...)
}

// ResolveDuration returns the container duration in seconds, or 0 when it
// cannot be determined.
func (r *Resolver) ResolveDuration(ctx context.Context, path string) float64 {
	out, err := r.query(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("duration probe failed")
		return 0
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		r.logger.Debug().Str("path", path).Str("output", strings.TrimSpace(string(out))).
			Msg("duration unknown")
		return 0
	}
	return seconds
}

// HasAudioStream reports whether path contains at least one audio stream.
// Any failure is treated as no audio.
func (r *Resolver) HasAudioStream(ctx context.Context, path string) bool {
	out, err := r.query(ctx,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("audio stream probe failed")
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

// TrimmedDuration resolves the duration of path and applies the clip cap.
func (r *Resolver) TrimmedDuration(ctx context.Context, path string, maxSeconds float64) float64 {
	return TrimDuration(r.ResolveDuration(ctx, path), maxSeconds)
}

// TrimDuration applies the clip cap to a resolved duration.
//
// Unknown durations become max(1, maxSeconds). A positive cap limits known
// durations. The result is always positive.
func TrimDuration(seconds, maxSeconds float64) float64 {
	if seconds <= 0 {
		return math.Max(1, maxSeconds)
	}
	if maxSeconds > 0 && seconds > maxSeconds {
		return maxSeconds
	}
	return seconds
}
