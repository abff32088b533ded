// Package ffmpeg executes compiled plans as ffmpeg subprocesses.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"montage/command"
	"montage/models"
	"montage/orchestrator"
)

const (
	maxStderrBytes = 64 * 1024 // tail of stderr kept for diagnostics
	logStderrBytes = 512
)

// progressArgs make ffmpeg write machine-readable progress to stderr.
var progressArgs = []string{"-hide_banner", "-nostats", "-progress", "pipe:2"}

// ExecFunc starts name with args and blocks until it exits. The process
// stderr must be written to stderr.
type ExecFunc func(ctx context.Context, name string, args []string, stderr io.Writer) error

func defaultExec(ctx context.Context, name string, args []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	return cmd.Run()
}

// Runner executes ffmpeg invocations.
type Runner struct {
	binary   string
	logger   zerolog.Logger
	exec     ExecFunc
	progress models.ProgressCallback
}

// NewRunner creates a runner for the given ffmpeg binary.
func NewRunner(binary string, logger zerolog.Logger) *Runner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{
		binary: binary,
		logger: logger,
		exec:   defaultExec,
	}
}

// WithExecFunc replaces the process launcher.
func (r *Runner) WithExecFunc(fn ExecFunc) *Runner {
	r.exec = fn
	return r
}

// SetProgressCallback receives progress updates of non-verbatim plans.
func (r *Runner) SetProgressCallback(cb models.ProgressCallback) *Runner {
	r.progress = cb
	return r
}

// Run executes one invocation with no progress reporting.
func (r *Runner) Run(ctx context.Context, inv command.Invocation) models.RunResult {
	return r.run(ctx, inv, 0, false)
}

func (r *Runner) run(ctx context.Context, inv command.Invocation, total float64, withProgress bool) models.RunResult {
	start := time.Now()
	jobID := uuid.NewString()
	log := r.logger.With().Str("job_id", jobID).Str("invocation", inv.Name).Logger()

	args := inv.Args
	if withProgress {
		args = append(append([]string{}, progressArgs...), inv.Args...)
	}

	var stderrBuf bytes.Buffer
	tail := &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	var stderr io.Writer = tail

	var wg sync.WaitGroup
	var pw *io.PipeWriter
	if withProgress {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		stderr = io.MultiWriter(tail, pw)

		progress := models.NewEncodingProgress(inv.Name, total)
		progress.State = models.ProgressStateStarting
		r.progress(progress)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := NewProgressParser().StreamProgress(pr, progress, r.progress); err != nil {
				log.Debug().Err(err).Msg("progress stream ended early")
			}
			// drain so the process never blocks on a full pipe
			_, _ = io.Copy(io.Discard, pr)
		}()
	}

	log.Debug().Str("binary", r.binary).Strs("args", args).Msg("executing ffmpeg")

	err := r.exec(ctx, r.binary, args, stderr)
	if pw != nil {
		pw.Close()
		wg.Wait()
	}
	elapsed := time.Since(start)

	result := models.RunResult{
		JobID:      jobID,
		Invocation: inv.Name,
		ExitCode:   exitCode(err),
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}
	if n := len(inv.Args); n > 0 {
		result.OutputPath = inv.Args[n-1]
	}

	if result.IsSuccess() {
		log.Info().Dur("duration", elapsed).Msg("ffmpeg invocation succeeded")
	} else {
		log.Warn().
			Int("exit_code", result.ExitCode).
			Dur("duration", elapsed).
			Str("stderr_tail", truncate(result.StderrTail, logStderrBytes)).
			Msg("ffmpeg invocation failed")
	}

	if withProgress {
		final := models.NewEncodingProgress(inv.Name, total)
		final.StartTime = start
		switch {
		case result.IsSuccess():
			final.State = models.ProgressStateCompleted
			final.CalculateProgress(total)
		case ctx.Err() != nil:
			final.State = models.ProgressStateCancelled
		default:
			final.State = models.ProgressStateFailed
		}
		r.progress(final)
	}

	return result
}

// RunPlan executes every invocation of plan in order.
//
// Each invocation depends on the previous one and they share a single
// encode slot, so a failing pass stops the plan: later passes never spawn.
// The returned results cover the invocations that actually ran. The error is
// the first failure as a *models.PipelineError, or the context error when
// the run was cancelled.
func (r *Runner) RunPlan(ctx context.Context, plan *command.Plan) ([]models.RunResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	withProgress := r.progress != nil && !plan.Verbatim

	dag := orchestrator.NewDAGOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceEncode, MaxSlots: 1},
	})

	results := make([]*models.RunResult, len(plan.Invocations))
	var mu sync.Mutex

	for i, inv := range plan.Invocations {
		task := &orchestrator.Task{
			ID:       taskID(i, inv),
			Resource: orchestrator.ResourceEncode,
			Job: orchestrator.JobFunc(func(ctx context.Context) error {
				res := r.run(ctx, inv, plan.Duration, withProgress)
				mu.Lock()
				results[i] = &res
				mu.Unlock()
				return res.Err()
			}),
		}
		if i > 0 {
			task.Dependencies = []string{taskID(i-1, plan.Invocations[i-1])}
		}
		if err := dag.AddTask(task); err != nil {
			return nil, err
		}
	}

	tasks, execErr := dag.Execute(ctx)

	ran := make([]models.RunResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			ran = append(ran, *res)
		}
	}

	if execErr != nil {
		return ran, execErr
	}
	for _, res := range ran {
		if err := res.Err(); err != nil {
			return ran, err
		}
	}
	for _, task := range tasks {
		if task.Error != nil && !errors.Is(task.Error, orchestrator.ErrDependencyFailed) {
			return ran, task.Error
		}
	}
	return ran, nil
}

func taskID(i int, inv command.Invocation) string {
	return fmt.Sprintf("%d-%s", i, inv.Name)
}

// exitCode maps a process error to an exit status: 0 on success, the
// process code when it exited, -1 when it could not start or was killed.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		if code := coded.ExitCode(); code > 0 {
			return code
		}
	}
	return -1
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
