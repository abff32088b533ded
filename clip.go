package main

import (
	"github.com/spf13/cobra"

	"montage/compiler"
	"montage/config"
)

func newClipCmd() *cobra.Command {
	opts := compiler.ClipOptions{Start: -1, End: -1, VP9CRF: -1}

	cmd := &cobra.Command{
		Use:   "clip <input>",
		Short: "Trim or transcode a single file into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			env, err := newEnvironment(cfg)
			if err != nil {
				return err
			}

			opts.Input = args[0]
			opts.Format = cfg.Timeline.OutputFormat
			if cmd.Flags().Changed(config.FlagFps) {
				opts.Fps = cfg.Timeline.Fps
			}

			plan, err := env.compiler.CompileClip(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return env.execute(cmd.Context(), plan)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Name, "name", "", "output name without extension")
	f.Float64Var(&opts.Start, "start", -1, "trim start in seconds")
	f.Float64Var(&opts.End, "end", -1, "trim end in seconds")
	f.IntVar(&opts.VP9CRF, "vp9-crf", -1, "encode VP9 at this CRF (0-63)")
	f.StringVar(&opts.TwoPassBitrate, "two-pass-bitrate", "", "two-pass encode at this video bitrate, e.g. 2M")
	f.BoolVar(&opts.Fast, "fast", false, "use the fastest encoder preset")
	f.StringVar(&opts.Crop, "crop", "", "crop filter expression, e.g. 640:360:0:0")
	f.StringVar(&opts.Scale, "scale", "", "scale filter expression, e.g. 1280:-2")
	f.BoolVar(&opts.Alpha, "alpha", false, "key out black into an alpha channel")
	f.BoolVar(&opts.ExtractOpus, "opus", false, "extract the audio track as Opus")
	f.BoolVar(&opts.RemoveAudio, "no-audio", false, "drop the audio track")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCustomCmd() *cobra.Command {
	var (
		opts compiler.CustomOptions
		ext  string
	)

	cmd := &cobra.Command{
		Use:   "custom <input>",
		Short: "Run an ffmpeg argument template with {input} and {output} placeholders",
		Example: `  montage custom in.mov --name preview --ext gif \
    --template "-y -i {input} -vf 'fps=10,scale=320:-1' {output}"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			env, err := newEnvironment(cfg)
			if err != nil {
				return err
			}

			opts.Input = args[0]
			opts.Format = cfg.Timeline.OutputFormat
			if ext != "" {
				opts.Format = ext
			}

			plan, err := env.compiler.CompileCustom(opts)
			if err != nil {
				return err
			}
			return env.execute(cmd.Context(), plan)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "output name without extension")
	cmd.Flags().StringVar(&opts.Template, "template", "", "ffmpeg arguments, shell quoted")
	cmd.Flags().StringVar(&ext, "ext", "", "output file extension (default: --format)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
