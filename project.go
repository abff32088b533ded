package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"montage/config"
	"montage/models"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".webp": true, ".gif": true, ".tiff": true,
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}
	cmd.AddCommand(newProjectNewCmd())
	return cmd
}

func newProjectNewCmd() *cobra.Command {
	var (
		slideshow   bool
		audio       []string
		noClipAudio bool
	)

	cmd := &cobra.Command{
		Use:   "new <name> <media[:seconds]>...",
		Short: "Create a project in the workspace",
		Long: "Creates TrackManager/Projects/<type>/<name>.json. Images are recognised by\n" +
			"extension and may carry a duration suffix, e.g. photo.jpg:4.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			env, err := newEnvironment(cfg)
			if err != nil {
				return err
			}

			projectType := models.ProjectVideoCollage
			if slideshow {
				projectType = models.ProjectSlideShow
			}
			tl := models.NewTimeline(args[0], projectType)
			cfg.Timeline.ApplyDefaults(tl)
			applyTimelineFlags(cmd.Flags(), cfg, tl)
			tl.UseVideoAudio = !noClipAudio && len(audio) == 0

			for _, arg := range args[1:] {
				path, seconds := parseMediaArg(arg)
				if imageExtensions[strings.ToLower(filepath.Ext(path))] {
					tl.AddImage(path, seconds)
				} else {
					tl.AddVideo(path)
				}
			}
			for _, arg := range audio {
				path, seconds := parseMediaArg(arg)
				tl.AddAudio(path, seconds)
			}

			if err := tl.Validate(); err != nil {
				return err
			}
			path, err := env.ws.SaveProject(tl)
			if err != nil {
				return err
			}

			log.Info().Str("project", tl.Name).Int("segments", len(tl.Items)).Msg("project saved")
			fmt.Println(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&slideshow, "slideshow", false, "create a SlideShow project instead of a VideoCollage")
	cmd.Flags().StringArrayVar(&audio, "audio", nil, "soundtrack file[:seconds], repeatable")
	cmd.Flags().BoolVar(&noClipAudio, "mute-clips", false, "do not use the clips' own audio")
	return cmd
}

// parseMediaArg splits an optional ":seconds" suffix from a path.
func parseMediaArg(arg string) (string, float64) {
	i := strings.LastIndex(arg, ":")
	if i <= 0 {
		return arg, 0
	}
	seconds, err := strconv.ParseFloat(arg[i+1:], 64)
	if err != nil || seconds < 0 {
		return arg, 0
	}
	return arg[:i], seconds
}
