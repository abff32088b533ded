package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"montage/config"
	"montage/internal/logging"
)

func main() {
	// SIGINT/SIGTERM cancel the context; running ffmpeg processes are killed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancelled := ctx.Err() != nil
	stop()

	if err != nil {
		if cancelled || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\n⚠️  Cancelled by user")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "montage",
		Short: "montage - compile timelines into ffmpeg filter graphs",
		Long: "Compiles a timeline of video clips, still images and audio into a single\n" +
			"ffmpeg invocation with cross-fades, per-item audio fades and silence fill.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			logging.Init(cfg.Verbose, cfg.LogJSON)

			cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
			return nil
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newRenderCmd(),
		newClipCmd(),
		newCustomCmd(),
		newProbeCmd(),
		newProjectCmd(),
		newConfigCmd(),
	)
	return rootCmd
}
