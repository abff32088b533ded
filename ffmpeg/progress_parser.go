package ffmpeg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"montage/internal/timeutil"
	"montage/models"
)

// ProgressParser parses ffmpeg stderr output for encoding metrics.
//
// Both the classic stats line ("frame= 24 fps=25 ... time=00:00:01.00 ...")
// and the machine-readable -progress format (one key=value per line, blocks
// terminated by progress=continue or progress=end) are understood.
type ProgressParser struct {
	frameRegex   *regexp.Regexp
	fpsRegex     *regexp.Regexp
	sizeRegex    *regexp.Regexp
	timeRegex    *regexp.Regexp
	bitrateRegex *regexp.Regexp
	speedRegex   *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg progress output
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		frameRegex:   regexp.MustCompile(`(?:^|\s)frame=\s*(\d+)`),
		fpsRegex:     regexp.MustCompile(`(?:^|\s)fps=\s*([0-9.]+)`),
		sizeRegex:    regexp.MustCompile(`(?:^|\s)(?:total_)?size=\s*([0-9]+)`),
		timeRegex:    regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*([0-9:.]+)`),
		bitrateRegex: regexp.MustCompile(`(?:^|\s)bitrate=\s*([0-9.]+)`),
		speedRegex:   regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
	}
}

// isMarker reports whether line ends a -progress block.
func isMarker(line string) bool {
	return line == "progress=continue" || line == "progress=end"
}

// ParseLine parses a single line of ffmpeg stderr output and updates progress.
// It returns true when any metric changed.
func (pp *ProgressParser) ParseLine(line string, progress *models.EncodingProgress) bool {
	line = strings.TrimSpace(line)
	if line == "" || isMarker(line) {
		return false
	}

	updated := false

	if m := pp.frameRegex.FindStringSubmatch(line); len(m) > 1 {
		if frame, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			progress.Frame = frame
			updated = true
		}
	}

	if m := pp.fpsRegex.FindStringSubmatch(line); len(m) > 1 {
		if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.FPS = fps
			updated = true
		}
	}

	if m := pp.sizeRegex.FindStringSubmatch(line); len(m) > 1 {
		progress.Size = m[1] + "kB"
		if strings.HasPrefix(line, "total_size=") {
			progress.Size = m[1] + "B"
		}
		updated = true
	}

	if m := pp.timeRegex.FindStringSubmatch(line); len(m) > 1 {
		if seconds, err := timeutil.ParseTimecode(m[1]); err == nil && seconds >= 0 {
			progress.CurrentTime = m[1]
			progress.CalculateProgress(seconds)
			updated = true
		}
	}

	if m := pp.bitrateRegex.FindStringSubmatch(line); len(m) > 1 {
		progress.Bitrate = m[1] + "kbits/s"
		updated = true
	}

	if m := pp.speedRegex.FindStringSubmatch(line); len(m) > 1 {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.Speed = speed
			updated = true
		}
	}

	return updated
}

// StreamProgress reads ffmpeg stderr until EOF and reports progress.
//
// In -progress mode the callback fires once per block; stats lines fire it
// for every line that carried a metric.
func (pp *ProgressParser) StreamProgress(reader io.Reader, progress *models.EncodingProgress, callback models.ProgressCallback) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(scanLines)

	notify := func() {
		progress.State = models.ProgressStateEncoding
		if callback != nil {
			callback(progress)
		}
	}

	pending := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if isMarker(line) {
			if pending {
				notify()
				pending = false
			}
			continue
		}

		if !pp.ParseLine(line, progress) {
			continue
		}
		if strings.Contains(line, " ") {
			// stats line
			notify()
			pending = false
		} else {
			pending = true
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ffmpeg output: %w", err)
	}
	return nil
}

// scanLines splits on '\n' and on the '\r' ffmpeg uses to rewrite its stats
// line in place.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// FormatProgressJSON converts progress to JSON for logging
func FormatProgressJSON(progress *models.EncodingProgress) (string, error) {
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
