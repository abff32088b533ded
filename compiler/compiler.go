// Package compiler turns a timeline into an executable ffmpeg plan.
//
// Compilation runs in four steps: validation, duration resolution, filter
// graph construction and argument serialisation. Validation happens before
// any subprocess is spawned and the caller's timeline is never modified.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"montage/command"
	"montage/command/clip"
	"montage/command/custom"
	"montage/command/render"
	"montage/filtergraph"
	"montage/models"
	"montage/orchestrator"
	"montage/workspace"
)

// Resolver answers the media queries the compiler needs. It never fails;
// unknown answers are 0 seconds and no audio.
type Resolver interface {
	ResolveDuration(ctx context.Context, path string) float64
	HasAudioStream(ctx context.Context, path string) bool
	TrimmedDuration(ctx context.Context, path string, maxSeconds float64) float64
}

// Options control the output of one render.
type Options struct {
	// Name of the output file without extension. Empty uses the timeline name.
	Name string

	TwoPassBitrate string
	Fast           bool
}

// Result is a compiled timeline.
type Result struct {
	Timeline *models.Timeline // resolved copy the graph was built from
	Graph    *filtergraph.Graph
	Plan     *command.Plan
}

// Compiler compiles timelines against a workspace.
type Compiler struct {
	resolver Resolver
	ws       *workspace.Workspace
	workers  int
	encoding command.EncodingOverrides
	logger   zerolog.Logger
}

// New creates a compiler. workers bounds concurrent probes; 0 uses the CPU
// count.
func New(resolver Resolver, ws *workspace.Workspace, workers int, logger zerolog.Logger) *Compiler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Compiler{
		resolver: resolver,
		ws:       ws,
		workers:  workers,
		logger:   logger,
	}
}

// SetEncoding sets the quality overrides applied on top of the container
// defaults.
func (c *Compiler) SetEncoding(o command.EncodingOverrides) *Compiler {
	c.encoding = o
	return c
}

// Compile validates, resolves and serialises tl.
func (c *Compiler) Compile(ctx context.Context, tl *models.Timeline, opts Options) (*Result, error) {
	if tl == nil {
		return nil, models.NewValidationError("timeline", models.ErrEmptyTimeline)
	}

	resolved := tl.Clone()
	resolved.Normalize()

	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	if err := checkSources(resolved); err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = resolved.Name
	}
	outputPath, err := c.ws.OutputPath(name, resolved.OutputFormat)
	if err != nil {
		return nil, err
	}

	resolved.ApplyImageDefaults()
	if err := c.resolve(ctx, resolved); err != nil {
		return nil, err
	}

	graph, err := filtergraph.Build(resolved)
	if err != nil {
		return nil, err
	}

	builder := render.NewRenderBuilder(graph, outputPath).
		SetEncoding(command.ForFormat(resolved.OutputFormat).Apply(c.encoding)).
		SetFast(opts.Fast)
	if opts.TwoPassBitrate != "" {
		builder.SetTwoPass(opts.TwoPassBitrate)
	}

	plan, err := builder.Plan()
	if err != nil {
		return nil, models.NewValidationError("encoding", err)
	}

	c.logger.Debug().
		Str("output", outputPath).
		Int("segments", len(resolved.Items)).
		Int("inputs", len(graph.Inputs)).
		Float64("duration", graph.Duration).
		Msg("timeline compiled")

	return &Result{Timeline: resolved, Graph: graph, Plan: plan}, nil
}

// checkSources verifies every referenced file exists.
func checkSources(tl *models.Timeline) error {
	for i, item := range tl.Items {
		if err := checkFile(fmt.Sprintf("items[%d].path", i), item.Path); err != nil {
			return err
		}
	}
	if tl.UseVideoAudio {
		return nil
	}
	for i, item := range tl.EffectiveAudioItems() {
		if err := checkFile(fmt.Sprintf("audio_items[%d].path", i), item.Path); err != nil {
			return err
		}
	}
	return nil
}

func checkFile(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewValidationError(field, fmt.Errorf("%s: %w", path, models.ErrMissingFile))
		}
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	if info.IsDir() {
		return models.NewValidationError(field, fmt.Errorf("%s is a directory: %w", path, models.ErrMissingFile))
	}
	return nil
}

// resolve fills segment durations, audio presence and audio item
// durations. Probes run concurrently; each job writes only its own slot.
func (c *Compiler) resolve(ctx context.Context, tl *models.Timeline) error {
	dag := orchestrator.NewDAGOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceProbe, MaxSlots: c.workers},
	})

	for i := range tl.Items {
		item := &tl.Items[i]
		if item.Kind != models.MediaVideo {
			continue
		}
		job := orchestrator.JobFunc(func(ctx context.Context) error {
			item.DurationSeconds = c.resolver.TrimmedDuration(ctx, item.Path, tl.MaxClipDurationSeconds)
			if tl.UseVideoAudio {
				item.HasAudio = c.resolver.HasAudioStream(ctx, item.Path)
			}
			return nil
		})
		if err := dag.AddTask(&orchestrator.Task{ID: fmt.Sprintf("segment-%d", i), Job: job, Resource: orchestrator.ResourceProbe}); err != nil {
			return err
		}
	}

	if !tl.UseVideoAudio {
		tl.AudioItems = append([]models.AudioItem(nil), tl.EffectiveAudioItems()...)
		tl.AudioPath = ""
		tl.AudioDurationSeconds = 0

		for k := range tl.AudioItems {
			item := &tl.AudioItems[k]
			job := orchestrator.JobFunc(func(ctx context.Context) error {
				item.DurationSeconds = c.audioDuration(ctx, *item)
				return nil
			})
			if err := dag.AddTask(&orchestrator.Task{ID: fmt.Sprintf("audio-%d", k), Job: job, Resource: orchestrator.ResourceProbe}); err != nil {
				return err
			}
		}
	}

	if _, err := dag.Execute(ctx); err != nil {
		return fmt.Errorf("duration resolution interrupted: %w", err)
	}
	return nil
}

func (c *Compiler) audioDuration(ctx context.Context, item models.AudioItem) float64 {
	d := item.DurationSeconds
	if d <= 0 {
		d = c.resolver.ResolveDuration(ctx, item.Path)
	}
	if d <= 0 {
		c.logger.Debug().Str("path", item.Path).Msg("audio duration unknown, using 1s")
		d = 1
	}
	return math.Max(models.MinSegmentSeconds, d)
}

// ClipOptions describe a single-file conversion into the workspace.
type ClipOptions struct {
	Input  string
	Name   string
	Format string

	Start, End float64 // negative leaves the bound open
	VP9CRF     int     // negative keeps the container codec

	TwoPassBitrate string
	Fast           bool

	Crop        string
	Scale       string
	Alpha       bool
	Fps         int
	ExtractOpus bool
	RemoveAudio bool
}

// CompileClip validates a clip conversion and returns its plan.
func (c *Compiler) CompileClip(ctx context.Context, opts ClipOptions) (*command.Plan, error) {
	if err := checkFile("input", opts.Input); err != nil {
		return nil, err
	}
	format := normalizeFormat(opts.Format)
	if !command.IsValidFormat(format) {
		return nil, models.NewValidationError("format",
			fmt.Errorf("invalid format '%s', must be one of: %s", format, strings.Join(command.FormatValues(), ", ")))
	}
	outputPath, err := c.ws.OutputPath(opts.Name, format)
	if err != nil {
		return nil, err
	}

	builder := clip.NewClipBuilder(opts.Input, outputPath, format).
		SetTrim(opts.Start, opts.End).
		SetFast(opts.Fast).
		SetCrop(opts.Crop).
		SetScale(opts.Scale).
		SetAlpha(opts.Alpha).
		SetFrameRate(opts.Fps).
		SetExtractOpus(opts.ExtractOpus).
		SetRemoveAudio(opts.RemoveAudio)
	if opts.VP9CRF >= 0 {
		builder.SetVP9(opts.VP9CRF)
	}
	if opts.TwoPassBitrate != "" {
		builder.SetTwoPass(opts.TwoPassBitrate)
	}
	if err := builder.Validate(); err != nil {
		return nil, models.NewValidationError("clip", err)
	}

	builder.SetSourceDuration(c.resolver.ResolveDuration(ctx, opts.Input))
	return builder.Plan()
}

// CustomOptions describe a templated ffmpeg run.
type CustomOptions struct {
	Input    string
	Name     string
	Format   string
	Template string
}

// CompileCustom substitutes paths into a user template. The plan is
// verbatim.
func (c *Compiler) CompileCustom(opts CustomOptions) (*command.Plan, error) {
	if err := checkFile("input", opts.Input); err != nil {
		return nil, err
	}
	outputPath, err := c.ws.OutputPath(opts.Name, normalizeFormat(opts.Format))
	if err != nil {
		return nil, err
	}

	plan, err := custom.NewCustomCommand(opts.Template, opts.Input, outputPath).Plan()
	if err != nil {
		return nil, models.NewValidationError("template", err)
	}
	return plan, nil
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		return models.DefaultOutputFormat
	}
	return format
}
