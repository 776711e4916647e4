// Package precheck verifies the environment before a recovery batch: the
// recovery tool and search utility are installed and the target directory
// is usable.
package precheck

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lyndonlyu/fmrecovery/internal/config"
	"github.com/lyndonlyu/fmrecovery/internal/filelock"
)

// Check is the interface for environment validation checks.
type Check interface {
	Name() string
	Run() CheckResult
}

// CheckResult holds the outcome of a single check.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// RunResult holds the aggregate outcome of all checks.
type RunResult struct {
	Target    string        `json:"target,omitempty"`
	AllPassed bool          `json:"all_passed"`
	Results   []CheckResult `json:"results"`
	Duration  string        `json:"duration"`
}

// Runner executes a collection of checks in order.
type Runner struct {
	// Target is the recovery directory being checked, if any.
	Target string
	checks []Check
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Add appends a check to the runner.
func (r *Runner) Add(c Check) {
	r.checks = append(r.checks, c)
}

// Run executes all checks sequentially, times execution, and returns RunResult.
func (r *Runner) Run() RunResult {
	start := time.Now()
	var results []CheckResult
	allPassed := true
	for _, c := range r.checks {
		result := c.Run()
		results = append(results, result)
		if !result.Passed {
			allPassed = false
		}
	}
	return RunResult{
		Target:    r.Target,
		AllPassed: allPassed,
		Results:   results,
		Duration:  time.Since(start).String(),
	}
}

// Checks returns the names of all registered checks.
func (r *Runner) Checks() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// DefaultRunner creates a runner for cfg. dir, when not empty, is checked as
// a recovery target.
func DefaultRunner(cfg *config.Config, dir string) *Runner {
	r := NewRunner()
	r.Add(BinaryCheck{Binary: cfg.Tool.Binary})
	if cfg.Discovery.Mode != "walk" {
		r.Add(BinaryCheck{Binary: cfg.Discovery.FindBinary})
	}
	if cfg.History.Enabled {
		r.Add(DirCheck{Dir: filepath.Dir(cfg.History.Path), Writable: true})
	}
	if dir != "" {
		r.Target = dir
		r.Add(DirCheck{Dir: dir, Writable: true})
		r.Add(LockCheck{Dir: dir})
	}
	return r
}

// ---------- Built-in checks ----------

// DirCheck validates that a directory exists and, optionally, accepts new files.
type DirCheck struct {
	Dir      string
	Writable bool
}

func (c DirCheck) Name() string { return "dir:" + c.Dir }
func (c DirCheck) Run() CheckResult {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return CheckResult{Name: c.Name(), Passed: false, Message: fmt.Sprintf("directory not found: %s", c.Dir)}
	}
	if !info.IsDir() {
		return CheckResult{Name: c.Name(), Passed: false, Message: fmt.Sprintf("not a directory: %s", c.Dir)}
	}
	if c.Writable {
		f, err := os.CreateTemp(c.Dir, ".fmrecovery-write-*")
		if err != nil {
			return CheckResult{Name: c.Name(), Passed: false, Message: fmt.Sprintf("not writable: %s", c.Dir)}
		}
		f.Close()
		os.Remove(f.Name())
	}
	return CheckResult{Name: c.Name(), Passed: true, Message: "OK"}
}

// BinaryCheck validates that an executable is available, either as a path or
// in PATH.
type BinaryCheck struct {
	Binary string
}

func (c BinaryCheck) Name() string { return "binary:" + c.Binary }
func (c BinaryCheck) Run() CheckResult {
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		return CheckResult{Name: c.Name(), Passed: false, Message: fmt.Sprintf("%s not found in PATH", c.Binary)}
	}
	return CheckResult{Name: c.Name(), Passed: true, Message: fmt.Sprintf("found at %s", path)}
}

// LockCheck reports whether another batch holds the lock for Dir. A lock file
// left behind by a dead process passes: flock is released with the process,
// so the next batch takes it over.
type LockCheck struct {
	Dir string
}

func (c LockCheck) Name() string { return "lock:" + c.Dir }
func (c LockCheck) Run() CheckResult {
	path := filepath.Join(c.Dir, filelock.LockName)
	if _, err := os.Stat(path); err != nil {
		return CheckResult{Name: c.Name(), Passed: true, Message: "no batch running"}
	}
	meta, metaErr := filelock.ReadMeta(path)
	if filelock.IsStale(path) {
		msg := "stale lock file, will be taken over"
		if metaErr == nil {
			msg = fmt.Sprintf("stale lock file from PID %d, will be taken over", meta.PID)
		}
		return CheckResult{Name: c.Name(), Passed: true, Message: msg}
	}
	return CheckResult{
		Name:    c.Name(),
		Passed:  false,
		Message: fmt.Sprintf("batch running as PID %d since %s", meta.PID, meta.Timestamp),
	}
}
