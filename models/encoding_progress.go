package models

import (
	"fmt"
	"time"
)

// EncodingProgress represents real-time encoding metrics from ffmpeg
type EncodingProgress struct {
	// Which invocation of the plan is running ("render", "pass1", ...)
	Invocation string

	// Current position in the output
	Frame       int64   // Current frame number
	FPS         float64 // Frames per second being processed
	CurrentTime string  // Current output timestamp (HH:MM:SS.MS)
	Seconds     float64 // CurrentTime in seconds

	// Performance metrics
	Bitrate string  // Current bitrate (e.g., "128.0kbits/s")
	Speed   float64 // Encoding speed multiplier (e.g., 2.34 means 2.34x realtime)
	Size    string  // Current output size

	// Progress calculation
	TotalDuration float64 // Composed output duration in seconds
	Progress      float64 // Percentage complete (0-100)

	State     ProgressState
	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressState represents the current state of an invocation
type ProgressState string

const (
	ProgressStateQueued    ProgressState = "queued"
	ProgressStateStarting  ProgressState = "starting"
	ProgressStateEncoding  ProgressState = "encoding"
	ProgressStateCompleted ProgressState = "completed"
	ProgressStateFailed    ProgressState = "failed"
	ProgressStateCancelled ProgressState = "cancelled"
)

// ProgressCallback receives progress updates while ffmpeg runs
type ProgressCallback func(progress *EncodingProgress)

// NewEncodingProgress creates a new progress tracker
func NewEncodingProgress(invocation string, totalDuration float64) *EncodingProgress {
	now := time.Now()
	return &EncodingProgress{
		Invocation:    invocation,
		TotalDuration: totalDuration,
		State:         ProgressStateQueued,
		StartTime:     now,
		UpdatedAt:     now,
	}
}

// CalculateProgress updates the percentage from the current output position
func (ep *EncodingProgress) CalculateProgress(currentSeconds float64) {
	ep.Seconds = currentSeconds
	if ep.TotalDuration > 0 {
		ep.Progress = (currentSeconds / ep.TotalDuration) * 100
		if ep.Progress > 100 {
			ep.Progress = 100
		}
	}
	ep.UpdatedAt = time.Now()
}

// EstimatedTimeRemaining calculates ETA based on elapsed time and percentage
func (ep *EncodingProgress) EstimatedTimeRemaining() time.Duration {
	if ep.Speed <= 0 || ep.Progress <= 0 {
		return 0
	}

	elapsed := time.Since(ep.StartTime)
	totalEstimated := time.Duration(float64(elapsed) / (ep.Progress / 100))
	remaining := totalEstimated - elapsed

	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatSummary returns a human-readable summary of the progress
func (ep *EncodingProgress) FormatSummary() string {
	return fmt.Sprintf(
		"%s: %.1f%% | Speed: %.2fx | Bitrate: %s | Size: %s | ETA: %s",
		ep.Invocation,
		ep.Progress,
		ep.Speed,
		ep.Bitrate,
		ep.Size,
		formatDuration(ep.EstimatedTimeRemaining()),
	)
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds = seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
