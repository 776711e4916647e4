// Package recovery runs the FileMaker developer tool over discovered files
// in check-only mode and collects a per-file outcome.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/executor"
	"github.com/lyndonlyu/fmrecovery/internal/recoverlog"
)

// Tool invokes the recovery executable.
type Tool interface {
	Run(ctx context.Context, args ...string) (executor.Result, error)
}

// Options are forwarded to the recovery tool without interpretation, apart
// from Extension, OutputSuffix and the failure policy fields.
type Options struct {
	Extension    string
	OutputSuffix string
	LogName      string

	Passphrase    string
	SkipSchema    bool
	SkipStructure bool
	RebuildIndex  string
	KeepCaches    bool
	Bypass        bool
	Generate      string
	Username      string
	Password      string

	// StrictExitCode fails a file whose tool run exits non-zero even when an
	// output file was produced.
	StrictExitCode bool
	// FailOnLogProblems fails a file whose Recover.log reports problems.
	FailOnLogProblems bool
	// FailFast stops the batch after the first failure; the remaining files
	// stay Pending.
	FailFast bool
}

// Runner processes files one at a time in the order given.
type Runner struct {
	tool     Tool
	workDir  string
	opts     Options
	log      *slog.Logger
	onResult func(Result)
	onStart  func(index, total int, path string)
}

// NewRunner returns a Runner. workDir is the resolved target directory; the
// tool runs there and its Recover.log is looked for there.
func NewRunner(tool Tool, workDir string, opts Options) *Runner {
	if opts.Extension == "" {
		opts.Extension = ".fmp12"
	}
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = "_recovered"
	}
	if opts.LogName == "" {
		opts.LogName = "Recover.log"
	}
	return &Runner{
		tool:    tool,
		workDir: workDir,
		opts:    opts,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the diagnostic logger.
func (r *Runner) SetLogger(l *slog.Logger) {
	if l != nil {
		r.log = l
	}
}

// OnStart registers a callback invoked before each file is processed.
func (r *Runner) OnStart(fn func(index, total int, path string)) { r.onStart = fn }

// OnResult registers a callback invoked after each file is processed.
func (r *Runner) OnResult(fn func(Result)) { r.onResult = fn }

// Args builds the recovery tool command line for src and out.
func (r *Runner) Args(src, out string) []string {
	args := []string{"--recover", src, "-target_filename", out}
	if r.opts.Passphrase != "" {
		// ignored by the tool for files that are not encrypted
		args = append(args, "-encryption_key", r.opts.Passphrase)
	}
	if r.opts.Generate != "" {
		args = append(args, "-generate", r.opts.Generate)
	}
	if r.opts.SkipSchema {
		args = append(args, "-skipSchema")
	}
	if r.opts.SkipStructure {
		args = append(args, "-skipStructure")
	}
	if r.opts.RebuildIndex != "" {
		args = append(args, "-rebuildIndex", r.opts.RebuildIndex)
	}
	if r.opts.KeepCaches {
		args = append(args, "-keepCaches")
	}
	if r.opts.Bypass {
		args = append(args, "-bypass")
	}
	if r.opts.Username != "" {
		args = append(args, "-username", r.opts.Username)
	}
	if r.opts.Password != "" {
		args = append(args, "-password", r.opts.Password)
	}
	return args
}

// Run processes every file and returns the summary. Failures never stop the
// loop unless FailFast is set. A cancelled ctx stops between files and is
// returned alongside the partial summary.
func (r *Runner) Run(ctx context.Context, files []string) (Summary, error) {
	results := make([]Result, len(files))
	for i, f := range files {
		results[i] = Result{Path: f, Outcome: Pending}
	}

	var runErr error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if r.onStart != nil {
			r.onStart(i, len(files), f)
		}
		res := r.RecoverFile(ctx, f)
		results[i] = res
		if r.onResult != nil {
			r.onResult(res)
		}
		if res.Failed() && r.opts.FailFast {
			r.log.Info("stopping batch after failure", "path", f, "remaining", len(files)-i-1)
			break
		}
	}

	s := Summarize(results)
	s.Directory = r.workDir
	return s, runErr
}

// RecoverFile recovers a single file into a disposable output file, inspects
// the outcome and removes the output again.
func (r *Runner) RecoverFile(ctx context.Context, path string) Result {
	res := Result{Path: path, Outcome: Pending}

	out, ok := OutputPath(path, r.opts.Extension, r.opts.OutputSuffix)
	if !ok {
		r.log.Warn("not a database file, skipping", "path", path, "extension", r.opts.Extension)
		res.Outcome = Skipped
		res.Reason = WrongExtension
		res.Message = fmt.Sprintf("%q may not be a FileMaker file and is being skipped", filepath.Base(path))
		return res
	}
	res.Output = out

	// Never delete a file this run did not create.
	if _, err := os.Lstat(out); err == nil {
		return failure(res, OutputPathOccupied, fmt.Errorf("recovery: output path already exists: %s", out))
	}

	logPaths := r.logPaths(out)
	for _, lp := range logPaths {
		if err := os.Remove(lp); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("cannot remove stale recovery log", "path", lp, "err", err)
		}
	}

	r.log.Debug("invoking recovery tool", "path", path, "output", out)
	run, runErr := r.tool.Run(ctx, r.Args(path, out)...)
	res.ExitCode = run.ExitCode
	res.Duration = run.Duration
	res.Stdout = run.Stdout
	res.Stderr = run.Stderr

	for _, lp := range logPaths {
		rep, err := recoverlog.ParseFile(lp)
		if err == nil {
			res.Log = &rep
			break
		}
		if !errors.Is(err, recoverlog.ErrNoLog) {
			r.log.Warn("cannot parse recovery log", "path", lp, "err", err)
		}
	}

	// The output file is a working artifact; its presence is the success signal.
	removeErr := os.Remove(out)
	produced := removeErr == nil
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		// it exists but could not be removed
		produced = true
		r.log.Warn("cannot remove recovered output", "path", out, "err", removeErr)
	}

	switch {
	case runErr != nil:
		return failure(res, InvocationFailed, fmt.Errorf("%w: %v", errkind.ErrRecoveryToolInvocationFailed, runErr))
	case !produced:
		return failure(res, OutputArtifactMissing, fmt.Errorf("no output file created for %q: %w", filepath.Base(path), errkind.ErrOutputArtifactMissing))
	case run.ExitCode != 0 && r.opts.StrictExitCode:
		return failure(res, ToolReportedError, fmt.Errorf("recovery tool exited with status %d", run.ExitCode))
	case res.Log != nil && res.Log.HasProblems() && r.opts.FailOnLogProblems:
		return failure(res, LogReportedProblems, fmt.Errorf("recovery log reports %d problem(s) and %d error line(s)", res.Log.ProblemsFound, len(res.Log.Errors)))
	}

	if run.ExitCode != 0 {
		r.log.Warn("recovery tool exited non-zero", "path", path, "exit_code", run.ExitCode)
	}
	res.Outcome = Succeeded
	return res
}

// logPaths lists where the tool may write its log: the work directory and
// the directory of the output file.
func (r *Runner) logPaths(out string) []string {
	var paths []string
	if r.workDir != "" {
		paths = append(paths, filepath.Join(r.workDir, r.opts.LogName))
	}
	p := filepath.Join(filepath.Dir(out), r.opts.LogName)
	if len(paths) == 0 || filepath.Clean(paths[0]) != filepath.Clean(p) {
		paths = append(paths, p)
	}
	return paths
}
