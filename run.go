package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"montage/command"
	"montage/compiler"
	"montage/config"
	"montage/ffmpeg"
	"montage/ffprobe"
	"montage/internal/logging"
	"montage/models"
	"montage/workspace"
)

// environment holds the collaborators built from the effective config.
type environment struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	resolver *ffprobe.Resolver
	compiler *compiler.Compiler
}

func newEnvironment(cfg *config.Config) (*environment, error) {
	ws, err := workspace.New(cfg.RootPath)
	if err != nil {
		return nil, err
	}

	resolver := ffprobe.NewResolver(cfg.FFprobePath, cfg.ProbeTimeout, logging.WithComponent("ffprobe"))
	comp := compiler.New(resolver, ws, cfg.ProbeWorkers, logging.WithComponent("compiler")).
		SetEncoding(cfg.Encoding.Overrides())

	return &environment{cfg: cfg, ws: ws, resolver: resolver, compiler: comp}, nil
}

// execute prints the plan in dry-run mode, otherwise runs it with a
// progress bar.
func (e *environment) execute(ctx context.Context, plan *command.Plan) error {
	if e.cfg.DryRun {
		fmt.Println(plan.String())
		return nil
	}

	if err := e.ws.EnsureDirs(); err != nil {
		return err
	}

	runner := ffmpeg.NewRunner(e.cfg.FFmpegPath, logging.WithComponent("ffmpeg"))

	var bar *progressbar.ProgressBar
	if !plan.Verbatim {
		bar = newProgressBar(plan)
		runner.SetProgressCallback(func(p *models.EncodingProgress) {
			bar.Describe(describe(p))
			_ = bar.Set(int(p.Progress))
		})
	}

	fmt.Printf("Input:  %s\n", plan.InputPath)
	fmt.Printf("Output: %s\n", plan.OutputPath)
	fmt.Printf("Passes: %d\n\n", len(plan.Invocations))

	start := time.Now()
	results, err := runner.RunPlan(ctx, plan)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	for _, r := range results {
		log.Debug().Str("job_id", r.JobID).Msg(r.Summary())
	}
	if err != nil {
		return err
	}

	fmt.Printf("✅ Completed in %s: %s\n", time.Since(start).Round(time.Millisecond), plan.OutputPath)
	return nil
}

func newProgressBar(plan *command.Plan) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(string(plan.Type)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func describe(p *models.EncodingProgress) string {
	if p.Speed > 0 {
		return fmt.Sprintf("%-6s %.2fx", p.Invocation, p.Speed)
	}
	return p.Invocation
}
