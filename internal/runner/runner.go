// Package runner executes pipeline stages as external processes, streaming
// their combined output into a job log and honouring cooperative cancellation.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
)

const (
	// DefaultKillGrace is how long a terminated process group gets to exit
	// before it is killed.
	DefaultKillGrace = 3 * time.Second
)

var (
	// ErrCancelled is returned when the target requested cancellation while the stage ran.
	ErrCancelled = errors.New("cancelled by user")
	// ErrEmptyCommand is returned when Run is called without a command.
	ErrEmptyCommand = errors.New("runner: empty command")
)

// StageError reports a stage that could not start or exited unsuccessfully.
// ExitCode is -1 when the process never started or was killed by a signal.
type StageError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s failed (exit %d)", e.Stage, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Target receives a stage's output and is polled for cancellation after each line.
type Target interface {
	AppendLog(line string)
	CancelRequested() bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithKillGrace sets the interval between the graceful and the forceful signal.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

// Runner starts external commands in their own process group.
type Runner struct {
	logger    *slog.Logger
	killGrace time.Duration
}

// New creates a Runner.
func New(logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		logger:    logger,
		killGrace: DefaultKillGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes argv as the stage named stage. Every output line is appended to
// target as it arrives; cancellation is observed between lines, so a process
// that stays silent is only stopped once it prints again or exits.
//
// Cancelling ctx terminates the process group regardless of output and
// returns ctx's error.
func (r *Runner) Run(ctx context.Context, stage string, argv []string, target Target) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	target.AppendLog("=== " + stage + " ===")
	target.AppendLog("CMD: " + shellquote.Join(argv...))

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - argv is built by the command builders
	setProcessGroup(cmd)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return &StageError{Stage: stage, ExitCode: -1, Err: err}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		target.AppendLog("ERROR: " + err.Error())
		return &StageError{Stage: stage, ExitCode: -1, Err: err}
	}

	p := newProcess(cmd, out, r.killGrace)
	r.logger.Info("stage started",
		slog.String("stage", stage),
		slog.Int("pid", p.pid),
	)

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go p.escalateOnDone(ctx, stopWatch)

	cancelled := false
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 4*1024), scanBufferSize)
	scanner.Split(scanOutputLines)
	for scanner.Scan() {
		target.AppendLog(scanner.Text())
		if target.CancelRequested() {
			cancelled = true
			break
		}
	}

	switch {
	case cancelled:
		p.terminate()
		target.AppendLog("Cancelled by user")
		r.logger.Info("stage cancelled", slog.String("stage", stage))
		return ErrCancelled
	case ctx.Err() != nil:
		p.terminate()
		target.AppendLog("Interrupted: service shutting down")
		return fmt.Errorf("%s: %w", stage, ctx.Err())
	}

	if scanErr := scanner.Err(); scanErr != nil {
		p.terminate()
		target.AppendLog("ERROR: reading output: " + scanErr.Error())
		return &StageError{Stage: stage, ExitCode: -1, Err: scanErr}
	}

	waitErr := p.wait()
	if target.CancelRequested() {
		target.AppendLog("Cancelled by user")
		return ErrCancelled
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
			return &StageError{Stage: stage, ExitCode: exitErr.ExitCode()}
		}
		return &StageError{Stage: stage, ExitCode: -1, Err: waitErr}
	}

	r.logger.Debug("stage finished", slog.String("stage", stage))
	return nil
}
