package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lyndonlyu/fmrecovery/internal/config"
	"github.com/lyndonlyu/fmrecovery/internal/discovery"
	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/executor"
	"github.com/lyndonlyu/fmrecovery/internal/filelock"
	"github.com/lyndonlyu/fmrecovery/internal/history"
	"github.com/lyndonlyu/fmrecovery/internal/recovery"
	"github.com/lyndonlyu/fmrecovery/internal/redact"
	"github.com/lyndonlyu/fmrecovery/internal/stopfile"
	"github.com/lyndonlyu/fmrecovery/internal/target"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// runOptions holds the flags of one invocation.
type runOptions struct {
	configPath string
	newest     bool
	passphrase string
	failFast   bool
	format     string
	timeout    time.Duration
	verbose    bool
	noHistory  bool
	findMode   string

	skipSchema    bool
	skipStructure bool
	rebuildIndex  string
	keepCaches    bool
	generate      string
	username      string
}

func (o *runOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&o.newest, "newest", "n", false, "search using the newest subdirectory of directoryPath")
	f.StringVarP(&o.passphrase, "passphrase", "p", "", "encryption at rest passphrase (or $"+envPassphrase+")")
	f.StringVar(&o.configPath, "config", "", "config file (default ~/.fmrecovery/config.yaml)")
	f.BoolVar(&o.failFast, "fail-fast", false, "stop after the first failed file")
	f.StringVar(&o.format, "format", "text", "output format: text, json or markdown")
	f.DurationVar(&o.timeout, "timeout", 0, "per-file recovery timeout (overrides tool.timeout)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log diagnostics to stderr")
	f.BoolVar(&o.noHistory, "no-history", false, "do not record this run in the history database")
	f.StringVar(&o.findMode, "find", "", "file search: auto, find or walk (overrides discovery.mode)")

	f.BoolVar(&o.skipSchema, "skip-schema", false, "pass -skipSchema to the recovery tool")
	f.BoolVar(&o.skipStructure, "skip-structure", false, "pass -skipStructure to the recovery tool")
	f.StringVar(&o.rebuildIndex, "rebuild-index", "", "pass -rebuildIndex <now|later|false> to the recovery tool")
	f.BoolVar(&o.keepCaches, "keep-caches", false, "pass -keepCaches to the recovery tool")
	f.StringVar(&o.generate, "generate", "", "pass -generate <rebuild|datablocks|asis> to the recovery tool")
	f.StringVar(&o.username, "username", "", "account name for the recovery tool (password from $"+envPassword+")")
}

// loadConfig reads path, or the default location when path is empty. An
// explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %v: %w", path, err, errkind.ErrUsage)
	}
	return config.Load(path)
}

// applyFlags overlays explicitly set flags on cfg.
func (o *runOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("fail-fast") {
		cfg.FailFast = o.failFast
	}
	if f.Changed("timeout") {
		cfg.Tool.Timeout = int(o.timeout.Round(time.Second) / time.Second)
		if o.timeout > 0 && cfg.Tool.Timeout == 0 {
			cfg.Tool.Timeout = 1
		}
	}
	if f.Changed("find") {
		cfg.Discovery.Mode = o.findMode
	}
	if f.Changed("skip-schema") {
		cfg.Tool.SkipSchema = o.skipSchema
	}
	if f.Changed("skip-structure") {
		cfg.Tool.SkipStructure = o.skipStructure
	}
	if f.Changed("rebuild-index") {
		cfg.Tool.RebuildIndex = o.rebuildIndex
	}
	if f.Changed("keep-caches") {
		cfg.Tool.KeepCaches = o.keepCaches
	}
	if f.Changed("generate") {
		cfg.Tool.Generate = o.generate
	}
	if f.Changed("username") {
		cfg.Tool.Username = o.username
	}
	if o.noHistory {
		cfg.History.Enabled = false
	}
	switch o.format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown --format %q: %w", o.format, errkind.ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, errkind.ErrUsage)
	}
	return nil
}

func runRecovery(cmd *cobra.Command, args []string, o *runOptions) error {
	base, pattern := args[0], args[1]
	out := cmd.OutOrStdout()
	text := o.format == "text"

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	if err := o.applyFlags(cmd, cfg); err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), o.verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := target.Resolve(base, o.newest)
	if err != nil {
		return err
	}
	if text {
		fmt.Fprintf(out, "%s %s\n", styleBanner.Render("Directory being used:"), dir)
	}

	finder, err := discovery.New(cfg.Discovery.Mode, cfg.Discovery.FindBinary, cfg.Discovery.MaxDepth, logger)
	if err != nil {
		return err
	}
	files, err := finder.Find(ctx, dir, pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matching %q in %s: %w", pattern, dir, errkind.ErrNoMatchingFiles)
	}
	logger.Debug("discovered files", "dir", dir, "pattern", pattern, "count", len(files))

	lock, err := filelock.Acquire(dir)
	if err != nil {
		return fmt.Errorf("another recovery batch is using %s: %w", dir, err)
	}
	defer lock.Release()

	sw := stopfile.InDir(cfg.BaseDir)
	ctx, cancelWatch := sw.Watch(ctx)
	defer cancelWatch()

	passphrase := o.passphrase
	if passphrase == "" {
		passphrase = os.Getenv(envPassphrase)
	}
	password := os.Getenv(envPassword)
	red := redact.New(passphrase, password)

	tool := executor.New(executor.Options{
		Binary:   cfg.Tool.Binary,
		Timeout:  time.Duration(cfg.Tool.Timeout) * time.Second,
		Dir:      dir,
		StripEnv: []string{envPassphrase, envPassword},
	})
	runner := recovery.NewRunner(tool, dir, recovery.Options{
		Extension:         cfg.Tool.Extension,
		OutputSuffix:      cfg.Tool.OutputSuffix,
		LogName:           cfg.Tool.LogName,
		Passphrase:        passphrase,
		SkipSchema:        cfg.Tool.SkipSchema,
		SkipStructure:     cfg.Tool.SkipStructure,
		RebuildIndex:      cfg.Tool.RebuildIndex,
		KeepCaches:        cfg.Tool.KeepCaches,
		Bypass:            cfg.Tool.Bypass,
		Generate:          cfg.Tool.Generate,
		Username:          cfg.Tool.Username,
		Password:          password,
		StrictExitCode:    cfg.StrictExitCode(),
		FailOnLogProblems: cfg.Tool.FailOnLogProblems,
		FailFast:          cfg.FailFast,
	})
	runner.SetLogger(logger)

	rec := openRecorder(cfg, logger, red)
	defer rec.close()
	rec.start(dir, pattern, len(files))

	var spin *Spinner
	animate := text && !o.verbose && isTerminal(out)
	runner.OnStart(func(i, total int, path string) {
		if argv, ok := previewArgs(runner, cfg, path); ok {
			logger.Debug("recovery command", "cmd", red.CommandLine(tool.Binary(), argv))
		}
		if animate {
			spin = NewSpinner(out, fmt.Sprintf("[%d/%d] recovering %s", i+1, total, filepath.Base(path)))
		}
	})
	seq := 0
	runner.OnResult(func(res recovery.Result) {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
		rec.add(seq, res)
		seq++
		if text {
			printResult(out, res, red, o.verbose)
		}
	})

	summary, runErr := runner.Run(ctx, files)
	summary.Pattern = pattern
	rec.finish(summary)

	if err := printSummary(out, summary.Scrub(red.String), o.format); err != nil {
		return err
	}
	if runErr != nil {
		if sw.Triggered() {
			_, reason := sw.Engaged()
			return fmt.Errorf("stopped by %s (%s): %w", sw.Path(), reason, errkind.ErrRecoveryFailed)
		}
		return fmt.Errorf("interrupted: %v: %w", runErr, errkind.ErrRecoveryFailed)
	}
	return summary.Err()
}

// previewArgs returns the tool arguments for path, when it will be recovered.
func previewArgs(r *recovery.Runner, cfg *config.Config, path string) ([]string, bool) {
	out, ok := recovery.OutputPath(path, cfg.Tool.Extension, cfg.Tool.OutputSuffix)
	if !ok {
		return nil, false
	}
	return r.Args(path, out), true
}

func printResult(w io.Writer, res recovery.Result, red *redact.Redactor, verbose bool) {
	line := red.String(recovery.FormatResult(res))
	detail := strings.TrimPrefix(line, "["+res.Outcome.String()+"]")
	switch res.Outcome {
	case recovery.Failed:
		detail = styleError.Render(detail)
	case recovery.Skipped:
		detail = styleWarn.Render(detail)
	}
	fmt.Fprintln(w, renderOutcome(res.Outcome)+detail)

	if res.Outcome == recovery.Failed || verbose {
		for _, stream := range []string{res.Stdout, res.Stderr} {
			for _, l := range strings.Split(strings.TrimSpace(red.String(stream)), "\n") {
				if l != "" {
					fmt.Fprintln(w, styleInfo.Render("    "+l))
				}
			}
		}
		if res.Log != nil {
			for _, e := range res.Log.Errors {
				fmt.Fprintln(w, styleInfo.Render(fmt.Sprintf("    log: [%d] %s", e.Code, red.String(e.Message))))
			}
		}
	}
}

func printSummary(w io.Writer, s recovery.Summary, format string) error {
	switch format {
	case "json":
		js, err := recovery.FormatSummaryJSON(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, js)
	case "markdown":
		fmt.Fprintln(w, renderMarkdown(recovery.FormatSummaryMarkdown(s)))
	default:
		fmt.Fprintln(w)
		if s.Err() != nil {
			fmt.Fprintln(w, styleError.Render(recovery.FormatTotals(s)))
		} else {
			fmt.Fprintln(w, styleSuccess.Render(recovery.FormatTotals(s)))
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// recorder writes the run to the history database. Database problems are
// logged and never fail the batch.
type recorder struct {
	db     *history.DB
	runID  string
	logger *slog.Logger
	red    *redact.Redactor
}

func openRecorder(cfg *config.Config, logger *slog.Logger, red *redact.Redactor) *recorder {
	rec := &recorder{logger: logger, red: red}
	if !cfg.History.Enabled {
		return rec
	}
	if err := cfg.EnsureDirs(); err != nil {
		logger.Warn("history disabled", "err", err)
		return rec
	}
	db, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		return rec
	}
	rec.db = db
	return rec
}

func (r *recorder) start(dir, pattern string, total int) {
	if r.db == nil {
		return
	}
	r.runID = uuid.New().String()
	if err := r.db.StartRun(history.RunRecord{ID: r.runID, Directory: dir, Pattern: pattern, Total: total}); err != nil {
		r.logger.Warn("history: start run", "err", err)
		r.runID = ""
	}
}

func (r *recorder) add(seq int, res recovery.Result) {
	if r.db == nil || r.runID == "" {
		return
	}
	problems := 0
	if res.Log != nil {
		problems = res.Log.ProblemsFound + len(res.Log.Errors)
	}
	err := r.db.AddFile(history.FileRecord{
		RunID:      r.runID,
		Seq:        seq,
		Path:       res.Path,
		Outcome:    res.Outcome.String(),
		Reason:     res.Reason.String(),
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
		Problems:   problems,
		Message:    r.red.String(res.Message),
	})
	if err != nil {
		r.logger.Warn("history: add file", "path", res.Path, "err", err)
	}
}

func (r *recorder) finish(s recovery.Summary) {
	if r.db == nil || r.runID == "" {
		return
	}
	status := history.StatusCompleted
	if s.Err() != nil {
		status = history.StatusFailed
	}
	if err := r.db.FinishRun(r.runID, status, s.Total, s.Succeeded, s.Failed, s.Skipped); err != nil {
		r.logger.Warn("history: finish run", "err", err)
	}
}

func (r *recorder) close() {
	if r.db != nil {
		r.db.Close()
	}
}
