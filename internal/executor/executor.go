package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when the process outlives Options.Timeout and is killed.
var ErrTimeout = errors.New("executor: process timed out")

// filterEnv returns os.Environ() with the named keys removed.
func filterEnv(keys ...string) []string {
	env := os.Environ()
	result := make([]string, 0, len(env))
	for _, e := range env {
		skip := false
		for _, key := range keys {
			if strings.HasPrefix(e, key+"=") {
				skip = true
				break
			}
		}
		if !skip {
			result = append(result, e)
		}
	}
	return result
}

type Options struct {
	Binary    string
	Timeout   time.Duration // zero means no timeout
	Dir       string        // working directory of the child
	StripEnv  []string      // environment keys withheld from the child
	WaitDelay time.Duration // grace period for pipes after kill; defaults to 5s
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

type Executor struct {
	opts Options
}

func New(opts Options) *Executor {
	if opts.WaitDelay == 0 {
		opts.WaitDelay = 5 * time.Second
	}
	return &Executor{opts: opts}
}

// Binary returns the executable this executor runs.
func (e *Executor) Binary() string {
	return e.opts.Binary
}

// Run executes the binary with args and waits for it to exit. A non-zero exit
// status is reported in Result.ExitCode with a nil error; an error means the
// process could not be started, was killed on timeout, or ctx was cancelled.
func (e *Executor) Run(ctx context.Context, args ...string) (Result, error) {
	if e.opts.Binary == "" {
		return Result{}, fmt.Errorf("executor: no binary configured")
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.opts.Binary, args...)
	cmd.Dir = e.opts.Dir
	cmd.WaitDelay = e.opts.WaitDelay
	if len(e.opts.StripEnv) > 0 {
		cmd.Env = filterEnv(e.opts.StripEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				result.TimedOut = true
				return result, fmt.Errorf("%w after %s: %s", ErrTimeout, e.opts.Timeout, e.opts.Binary)
			}
			return result, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("executor: run %s: %w", e.opts.Binary, err)
	}

	return result, nil
}
