package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"montage/compiler"
	"montage/config"
	"montage/models"
	"montage/workspace"
)

func newRenderCmd() *cobra.Command {
	var (
		opts        compiler.Options
		projectType string
	)

	cmd := &cobra.Command{
		Use:   "render <timeline.json | project name>",
		Short: "Compile a timeline and render it into the workspace",
		Long: "Renders a timeline file, or a named project from the workspace, into\n" +
			"TrackManager/Processed/<name>.<format>. An existing output is never overwritten.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			env, err := newEnvironment(cfg)
			if err != nil {
				return err
			}

			tl, err := loadTimeline(env.ws, args[0], models.ProjectType(projectType))
			if err != nil {
				return err
			}
			cfg.Timeline.ApplyDefaults(tl)
			applyTimelineFlags(cmd.Flags(), cfg, tl)

			res, err := env.compiler.Compile(cmd.Context(), tl, opts)
			if err != nil {
				return err
			}

			log.Info().
				Str("timeline", res.Timeline.Name).
				Int("segments", len(res.Timeline.Items)).
				Str("join", string(res.Timeline.Transition)).
				Float64("duration", res.Graph.Duration).
				Msg("timeline compiled")

			return env.execute(cmd.Context(), res.Plan)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "output name (default: timeline name)")
	cmd.Flags().StringVar(&opts.TwoPassBitrate, "two-pass-bitrate", "", "two-pass encode at this video bitrate, e.g. 4M")
	cmd.Flags().BoolVar(&opts.Fast, "fast", false, "use the fastest encoder preset")
	cmd.Flags().StringVar(&projectType, "type", "", "project type when rendering by name: VideoCollage, SlideShow")
	return cmd
}

// loadTimeline reads a timeline file, or a workspace project when arg is
// a bare name.
func loadTimeline(ws *workspace.Workspace, arg string, projectType models.ProjectType) (*models.Timeline, error) {
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return workspace.LoadTimeline(arg)
	}
	if _, err := os.Stat(arg); err == nil {
		return workspace.LoadTimeline(arg)
	}

	if projectType != "" {
		return ws.LoadProject(projectType, arg)
	}
	for _, t := range []models.ProjectType{models.ProjectVideoCollage, models.ProjectSlideShow} {
		if tl, err := ws.LoadProject(t, arg); err == nil {
			return tl, nil
		}
	}
	return nil, fmt.Errorf("project %q not found in %s", arg, ws.Root())
}

// applyTimelineFlags overrides timeline fields with the timeline flags the
// user set explicitly.
func applyTimelineFlags(fs *pflag.FlagSet, cfg *config.Config, tl *models.Timeline) {
	changed := func(name string) bool {
		return fs.Lookup(name) != nil && fs.Changed(name)
	}

	if changed(config.FlagWidth) {
		tl.Width = cfg.Timeline.Width
	}
	if changed(config.FlagHeight) {
		tl.Height = cfg.Timeline.Height
	}
	if changed(config.FlagFps) {
		tl.Fps = cfg.Timeline.Fps
	}
	if changed(config.FlagTransition) {
		tl.TransitionSeconds = cfg.Timeline.TransitionSeconds
	}
	if changed(config.FlagSlideDuration) {
		tl.SlideDurationSeconds = cfg.Timeline.SlideDurationSeconds
	}
	if changed(config.FlagMaxClipDuration) {
		tl.MaxClipDurationSeconds = cfg.Timeline.MaxClipDurationSeconds
	}
	if changed(config.FlagJoin) {
		tl.Transition = models.JoinMode(cfg.Timeline.JoinMode)
	}
	if changed(config.FlagFormat) {
		tl.OutputFormat = cfg.Timeline.OutputFormat
	}
}
