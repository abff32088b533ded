// Package ffprobe extracts metadata from media files using the ffprobe
// command-line tool.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Chapter represents a chapter marker in a media file.
type Chapter struct {
	ID        int    `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Tags      struct {
		Title string `json:"title,omitempty"`
	} `json:"tags"`
}

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	CodecLongName string `json:"codec_long_name"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	Duration      string `json:"duration,omitempty"`
	AvgFrameRate  string `json:"avg_frame_rate,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the complete metadata extracted from a media file.
type ProbeResult struct {
	Chapters []Chapter `json:"chapters"`
	Streams  []Stream  `json:"streams"`
	Format   Format    `json:"format"`
}

// GetDuration returns the duration of the media file in seconds.
//
// Returns an error if the duration cannot be parsed.
func (pr *ProbeResult) GetDuration() (float64, error) {
	if pr.Format.Duration == "" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}

	return duration, nil
}

// HasChapters returns true if the media file contains chapter markers.
func (pr *ProbeResult) HasChapters() bool {
	return len(pr.Chapters) > 0
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	return pr.streamsOfType("video")
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	return pr.streamsOfType("audio")
}

// HasAudio reports whether the file carries at least one audio stream.
func (pr *ProbeResult) HasAudio() bool {
	return len(pr.GetAudioStreams()) > 0
}

func (pr *ProbeResult) streamsOfType(codecType string) []Stream {
	var streams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == codecType {
			streams = append(streams, stream)
		}
	}
	return streams
}

// Probe analyzes a media file and extracts its metadata.
//
// Unlike the resolver queries, Probe reports failures: it backs the
// interactive probe command where the user wants to see what went wrong.
//
// Example:
//
//	result, err := resolver.Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    return err
//	}
//	duration, _ := result.GetDuration()
//	fmt.Printf("Duration: %.2f seconds\n", duration)
func (r *Resolver) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	// -v quiet: suppress verbose output
	// -print_format json: output in JSON format
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_chapters",
		"-show_streams",
		"-show_format",
		sourcePath,
	}

	output, err := r.query(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w (output: %s)", err, string(output))
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}

	return &result, nil
}
