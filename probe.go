package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"montage/config"
	"montage/ffprobe"
	"montage/internal/logging"
)

func newProbeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Show media metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			resolver := ffprobe.NewResolver(cfg.FFprobePath, cfg.ProbeTimeout, logging.WithComponent("ffprobe"))

			result, err := resolver.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode probe result: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("File:     %s\n", args[0])
			fmt.Printf("Format:   %s\n", result.Format.FormatLongName)
			if d, err := result.GetDuration(); err == nil {
				fmt.Printf("Duration: %.2fs\n", d)
			} else {
				fmt.Println("Duration: unknown")
			}
			for _, s := range result.GetVideoStreams() {
				fmt.Printf("Video #%d: %s %dx%d @ %s\n", s.Index, s.CodecName, s.Width, s.Height, s.AvgFrameRate)
			}
			for _, s := range result.GetAudioStreams() {
				fmt.Printf("Audio #%d: %s %s Hz, %d ch\n", s.Index, s.CodecName, s.SampleRate, s.Channels)
			}
			if result.HasChapters() {
				fmt.Printf("Chapters: %d\n", len(result.Chapters))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw probe result as JSON")
	return cmd
}
