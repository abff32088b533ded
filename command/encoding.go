package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported output containers.
const (
	FormatMP4  = "mp4"
	FormatMKV  = "mkv"
	FormatAVI  = "avi"
	FormatWebM = "webm"
)

// FormatValues returns the supported output containers.
func FormatValues() []string {
	return []string{FormatMP4, FormatMKV, FormatAVI, FormatWebM}
}

// IsValidFormat checks if format is a supported output container.
func IsValidFormat(format string) bool {
	for _, f := range FormatValues() {
		if f == format {
			return true
		}
	}
	return false
}

// Video and audio encoder names.
const (
	CodecX264  = "libx264"
	CodecMPEG4 = "mpeg4"
	CodecVP9   = "libvpx-vp9"
	CodecAAC   = "aac"
	CodecMP3   = "libmp3lame"
	CodecOpus  = "libopus"
)

// Quality defaults.
const (
	PresetFast    = "ultrafast"
	DefaultCRF    = 20
	DefaultVP9CRF = 32
)

// Encoding holds the codec and quality options of an output file.
type Encoding struct {
	Format     string
	VideoCodec string
	AudioCodec string

	PixelFormat string
	Profile     string
	Level       string
	Preset      string

	// CRF selects constant quality; a negative value omits it.
	CRF int
	// QScale selects fixed quantizer quality for mpeg4; 0 omits it.
	QScale int
	// VideoBitrate selects bitrate mode and replaces CRF/QScale.
	VideoBitrate string

	AudioBitrate string
	FastStart    bool
	Fast         bool
}

// EncodingOverrides are user-configured quality settings. Zero values keep
// the container defaults.
type EncodingOverrides struct {
	Preset       string
	CRF          int
	AudioBitrate string
	Profile      string
	Level        string
}

// ForFormat returns the default encoding for an output container.
//
// mp4 and mkv use x264 with AAC (mp4 adds +faststart), avi uses mpeg4 with
// MP3 and webm uses VP9 with Opus. Unknown containers get the mp4 codecs.
func ForFormat(format string) Encoding {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	x264 := Encoding{
		Format:       format,
		VideoCodec:   CodecX264,
		AudioCodec:   CodecAAC,
		PixelFormat:  "yuv420p",
		Profile:      "high",
		Level:        "4.0",
		Preset:       "medium",
		CRF:          DefaultCRF,
		AudioBitrate: "320k",
	}

	switch format {
	case FormatMKV:
		return x264
	case FormatAVI:
		return Encoding{
			Format:       format,
			VideoCodec:   CodecMPEG4,
			AudioCodec:   CodecMP3,
			CRF:          -1,
			QScale:       3,
			AudioBitrate: "320k",
		}
	case FormatWebM:
		return Encoding{
			Format:       format,
			VideoCodec:   CodecVP9,
			AudioCodec:   CodecOpus,
			PixelFormat:  "yuv420p",
			CRF:          DefaultVP9CRF,
			AudioBitrate: "192k",
		}
	default:
		x264.FastStart = true
		return x264
	}
}

// Apply returns a copy of e with the non-zero overrides applied.
// Preset, profile and level only apply to x264.
func (e Encoding) Apply(o EncodingOverrides) Encoding {
	if e.VideoCodec == CodecX264 {
		if o.Preset != "" {
			e.Preset = o.Preset
		}
		if o.Profile != "" {
			e.Profile = o.Profile
		}
		if o.Level != "" {
			e.Level = o.Level
		}
	}
	if o.CRF > 0 && e.CRF >= 0 {
		e.CRF = o.CRF
	}
	if o.AudioBitrate != "" {
		e.AudioBitrate = o.AudioBitrate
	}
	return e
}

// WithTwoPass switches to bitrate mode at the given video bitrate.
func (e Encoding) WithTwoPass(bitrate string) Encoding {
	e.VideoBitrate = bitrate
	return e
}

// WithFast selects the fastest encoder preset.
func (e Encoding) WithFast(fast bool) Encoding {
	e.Fast = fast
	return e
}

// IsTwoPass reports whether the encoding requires two passes.
func (e Encoding) IsTwoPass() bool { return e.VideoBitrate != "" }

// Validate checks the encoding for obviously unusable values.
func (e Encoding) Validate() error {
	if e.VideoCodec == "" {
		return fmt.Errorf("video codec cannot be empty")
	}
	if e.CRF > 51 {
		return fmt.Errorf("crf %d out of range (0-51)", e.CRF)
	}
	if e.IsTwoPass() && !isBitrate(e.VideoBitrate) {
		return fmt.Errorf("invalid video bitrate '%s'", e.VideoBitrate)
	}
	return nil
}

// VideoArgs returns the video encoder options.
func (e Encoding) VideoArgs() []string {
	args := []string{"-c:v", e.VideoCodec}

	if e.PixelFormat != "" {
		args = append(args, "-pix_fmt", e.PixelFormat)
	}

	switch e.VideoCodec {
	case CodecX264:
		if e.Profile != "" {
			args = append(args, "-profile:v", e.Profile)
		}
		if e.Level != "" {
			args = append(args, "-level", e.Level)
		}
		preset := e.Preset
		if e.Fast {
			preset = PresetFast
		}
		if preset != "" {
			args = append(args, "-preset", preset)
		}
	case CodecVP9:
		if e.Fast {
			args = append(args, "-deadline", "realtime", "-cpu-used", "8")
		}
	}

	switch {
	case e.VideoBitrate != "":
		args = append(args, "-b:v", e.VideoBitrate)
	case e.CRF >= 0:
		args = append(args, "-crf", strconv.Itoa(e.CRF))
		if e.VideoCodec == CodecVP9 {
			args = append(args, "-b:v", "0")
		}
	case e.QScale > 0:
		args = append(args, "-q:v", strconv.Itoa(e.QScale))
	}

	return args
}

// AudioArgs returns the audio encoder options.
func (e Encoding) AudioArgs() []string {
	args := []string{"-c:a", e.AudioCodec}
	if e.AudioBitrate != "" {
		args = append(args, "-b:a", e.AudioBitrate)
	}
	return args
}

// Args returns video options, audio options and container flags.
func (e Encoding) Args() []string {
	args := append(e.VideoArgs(), e.AudioArgs()...)
	if e.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	return args
}

func isBitrate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case 'k', 'K', 'm', 'M':
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}
