// Package clip builds single-file trim and transcode plans.
package clip

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"montage/command"
	"montage/internal/timeutil"
)

// ClipBuilder processes one input file: trim, transcode by container and
// the optional VP9, two-pass, fast, crop/scale, alpha key, frame-rate,
// Opus extraction and audio removal features.
type ClipBuilder struct {
	inputPath  string
	outputPath string
	format     string

	start, end float64 // negative means unset

	vp9CRF         int // negative disables VP9
	twoPassBitrate string
	fast           bool

	crop  string
	scale string
	alpha bool
	fps   int

	extractOpus bool
	removeAudio bool

	sourceDuration float64
	logFile        string
}

// NewClipBuilder creates a builder converting inputPath to outputPath in
// the given container format.
func NewClipBuilder(inputPath, outputPath, format string) *ClipBuilder {
	return &ClipBuilder{
		inputPath:  inputPath,
		outputPath: outputPath,
		format:     strings.ToLower(format),
		start:      -1,
		end:        -1,
		vp9CRF:     -1,
	}
}

// SetTrim keeps [start, end) of the input. A negative bound is left open.
func (c *ClipBuilder) SetTrim(start, end float64) *ClipBuilder {
	c.start = start
	c.end = end
	return c
}

// SetVP9 switches the video encoder to VP9 at constant quality crf
func (c *ClipBuilder) SetVP9(crf int) *ClipBuilder {
	c.vp9CRF = crf
	return c
}

// SetTwoPass enables two-pass encoding at the given video bitrate
func (c *ClipBuilder) SetTwoPass(bitrate string) *ClipBuilder {
	c.twoPassBitrate = bitrate
	return c
}

// SetFast selects the fastest encoder preset
func (c *ClipBuilder) SetFast(fast bool) *ClipBuilder {
	c.fast = fast
	return c
}

// SetCrop sets a crop expression (e.g. "640:360:0:0")
func (c *ClipBuilder) SetCrop(expr string) *ClipBuilder {
	c.crop = expr
	return c
}

// SetScale sets a scale expression (e.g. "1280:720")
func (c *ClipBuilder) SetScale(expr string) *ClipBuilder {
	c.scale = expr
	return c
}

// SetAlpha keys out black and writes an alpha-capable pixel format
func (c *ClipBuilder) SetAlpha(alpha bool) *ClipBuilder {
	c.alpha = alpha
	return c
}

// SetFrameRate changes the output frame rate
func (c *ClipBuilder) SetFrameRate(fps int) *ClipBuilder {
	c.fps = fps
	return c
}

// SetExtractOpus drops video and encodes the audio with Opus
func (c *ClipBuilder) SetExtractOpus(extract bool) *ClipBuilder {
	c.extractOpus = extract
	return c
}

// SetRemoveAudio drops the audio stream
func (c *ClipBuilder) SetRemoveAudio(remove bool) *ClipBuilder {
	c.removeAudio = remove
	return c
}

// SetSourceDuration records the input length, used for progress reporting
func (c *ClipBuilder) SetSourceDuration(seconds float64) *ClipBuilder {
	c.sourceDuration = seconds
	return c
}

// SetPassLogFile overrides the two-pass statistics file prefix
func (c *ClipBuilder) SetPassLogFile(path string) *ClipBuilder {
	c.logFile = path
	return c
}

func (c *ClipBuilder) opusOnly() bool {
	return c.extractOpus && !c.removeAudio
}

func (c *ClipBuilder) videoFilters() []string {
	var filters []string
	if c.crop != "" {
		filters = append(filters, "crop="+c.crop)
	}
	if c.scale != "" {
		filters = append(filters, "scale="+c.scale)
	}
	if c.alpha {
		filters = append(filters, "colorkey=0x000000:0.1:0.1", "format=yuva420p")
	}
	return filters
}

// BuildArgs returns the arguments shared by every invocation of the plan,
// without the output path.
func (c *ClipBuilder) BuildArgs() []string {
	enc := command.ForFormat(c.format)
	videoCodec := enc.VideoCodec
	audioCodec := enc.AudioCodec
	if c.extractOpus {
		audioCodec = command.CodecOpus
	}

	args := []string{"-y", "-i", c.inputPath}

	if c.start >= 0 {
		args = append(args, "-ss", timeutil.FormatSeconds(c.start))
	}
	if c.end >= 0 {
		args = append(args, "-to", timeutil.FormatSeconds(c.end))
	}

	if c.twoPassBitrate != "" {
		args = append(args, "-b:v", c.twoPassBitrate)
	}
	if c.fast {
		args = append(args, "-preset", command.PresetFast)
	}
	if c.fps > 0 {
		args = append(args, "-r", strconv.Itoa(c.fps))
	}

	opusOnly := c.opusOnly()
	if opusOnly {
		args = append(args, "-vn")
	}
	if filters := c.videoFilters(); !opusOnly && len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	if c.removeAudio {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", audioCodec)
	}

	if !opusOnly {
		if c.vp9CRF >= 0 {
			args = append(args, "-c:v", command.CodecVP9, "-crf", strconv.Itoa(c.vp9CRF), "-b:v", "0")
		} else {
			args = append(args, "-c:v", videoCodec)
		}
	}

	return args
}

// Duration returns the expected output length, 0 if unknown.
func (c *ClipBuilder) Duration() float64 {
	start := math.Max(0, c.start)
	end := c.sourceDuration
	if c.end >= 0 && (end <= 0 || c.end < end) {
		end = c.end
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Validate checks the clip options
func (c *ClipBuilder) Validate() error {
	if strings.TrimSpace(c.inputPath) == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if strings.TrimSpace(c.outputPath) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if !command.IsValidFormat(c.format) {
		return fmt.Errorf("invalid format '%s', must be one of: %s",
			c.format, strings.Join(command.FormatValues(), ", "))
	}
	if c.start >= 0 && c.end >= 0 && c.end <= c.start {
		return fmt.Errorf("trim end %.2f must be after start %.2f", c.end, c.start)
	}
	if c.vp9CRF > 63 {
		return fmt.Errorf("vp9 crf %d out of range (0-63)", c.vp9CRF)
	}
	if c.twoPassBitrate != "" {
		if err := command.ForFormat(c.format).WithTwoPass(c.twoPassBitrate).Validate(); err != nil {
			return err
		}
	}
	if c.fps < 0 {
		return fmt.Errorf("frame rate must be positive, got %d", c.fps)
	}
	return nil
}

// Plan compiles the clip into one invocation, or two for a two-pass encode
func (c *ClipBuilder) Plan() (*command.Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	plan := &command.Plan{
		Type:       command.TaskTypeClip,
		InputPath:  c.inputPath,
		OutputPath: c.outputPath,
		Duration:   c.Duration(),
	}

	common := c.BuildArgs()
	if c.twoPassBitrate != "" {
		logFile := c.logFile
		if logFile == "" {
			logFile = command.PassLogFile(c.outputPath)
		}
		plan.Invocations = command.TwoPass(common, c.outputPath, logFile)
	} else {
		plan.Invocations = command.SinglePass(command.InvocationClip, common, c.outputPath)
	}
	return plan, nil
}

// DryRun returns the command that would be executed without running it
func (c *ClipBuilder) DryRun() (string, error) {
	plan, err := c.Plan()
	if err != nil {
		return "", err
	}
	return plan.String(), nil
}

// GetTaskType returns the task type
func (c *ClipBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeClip
}

// GetInputPath returns the input path
func (c *ClipBuilder) GetInputPath() string {
	return c.inputPath
}

// GetOutputPath returns the output path
func (c *ClipBuilder) GetOutputPath() string {
	return c.outputPath
}
