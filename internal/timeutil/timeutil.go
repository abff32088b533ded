// Package timeutil provides time and number formatting for ffmpeg arguments.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatSeconds converts seconds to HH:MM:SS.MS format for ffmpeg.
//
// This format is used for ffmpeg time parameters like -ss (seek start)
// and -to (seek end). Supports fractional seconds for precise timing.
//
// Example:
//
//	FormatSeconds(0)      // "00:00:00.00"
//	FormatSeconds(90)     // "00:01:30.00"
//	FormatSeconds(3661)   // "01:01:01.00"
//	FormatSeconds(30.53)  // "00:00:30.53"
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// FormatDecimal renders a number for a filter graph or option value.
//
// The value is rounded to milliseconds and printed in its shortest form with
// a '.' separator regardless of the process locale, so 2 renders as "2" and
// 0.1+0.2 renders as "0.3".
func FormatDecimal(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// ParseTimecode parses either plain seconds ("12.5") or a clock value
// ("01:02:03.5", "02:03") into seconds.
func ParseTimecode(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timecode")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}

	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}
