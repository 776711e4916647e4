// Package discovery finds the database files a recovery batch will process.
//
// The search is deliberately shallow: with the default depth of 2 a backups
// root is searched together with its dated subfolders, but the finder never
// wanders into deeper metadata directories below them.
package discovery

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/executor"
)

// DefaultMaxDepth searches the directory itself and its immediate children.
const DefaultMaxDepth = 2

// Finder returns the files under dir whose base name matches pattern.
// Results are sorted so repeated calls on an unchanged tree agree.
type Finder interface {
	Find(ctx context.Context, dir, pattern string) ([]string, error)
}

// Runner runs the external search utility.
type Runner interface {
	Run(ctx context.Context, args ...string) (executor.Result, error)
}

// New selects a Finder for mode: "find" shells out to findBinary, "walk"
// searches in-process, and "auto" prefers find when it is on PATH. logger
// receives warnings about directories that could not be searched; nil
// discards them.
func New(mode, findBinary string, maxDepth int, logger *slog.Logger) (Finder, error) {
	switch mode {
	case "walk":
		return &WalkFinder{MaxDepth: maxDepth, Logger: logger}, nil
	case "find":
		return newExecFinder(findBinary, maxDepth, logger), nil
	case "auto", "":
		if _, err := exec.LookPath(findBinary); err == nil {
			return newExecFinder(findBinary, maxDepth, logger), nil
		}
		return &WalkFinder{MaxDepth: maxDepth, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("discovery: unknown mode %q", mode)
	}
}

func validate(dir, pattern string) error {
	if dir == "" {
		return fmt.Errorf("discovery: directory path is missing: %w", errkind.ErrMissingArgument)
	}
	if pattern == "" {
		return fmt.Errorf("discovery: file pattern is missing: %w", errkind.ErrMissingArgument)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("discovery: bad pattern %q: %v: %w", pattern, err, errkind.ErrMissingArgument)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("discovery: %s does not exist or is not readable: %w", dir, errkind.ErrInvalidDirectory)
	}
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("discovery: %s is not readable: %w", dir, errkind.ErrInvalidDirectory)
	}
	f.Close()
	return nil
}

func newExecFinder(binary string, maxDepth int, logger *slog.Logger) *ExecFinder {
	return &ExecFinder{
		Runner:   executor.New(executor.Options{Binary: binary}),
		MaxDepth: maxDepth,
		Logger:   logger,
	}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func depthOr(d int) int {
	if d <= 0 {
		return DefaultMaxDepth
	}
	return d
}

// ExecFinder delegates the search to find(1).
//
// find exits non-zero when it cannot descend into some subdirectory but still
// prints every match it could reach. Those matches are kept and stderr is
// logged; the search fails only when find printed nothing.
type ExecFinder struct {
	Runner   Runner
	MaxDepth int
	Logger   *slog.Logger
}

func (f *ExecFinder) Find(ctx context.Context, dir, pattern string) ([]string, error) {
	if err := validate(dir, pattern); err != nil {
		return nil, err
	}

	res, err := f.Runner.Run(ctx,
		dir,
		"-maxdepth", strconv.Itoa(depthOr(f.MaxDepth)),
		"-type", "f",
		"-name", pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: find: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}

	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(res.Stderr)
		if len(paths) == 0 {
			return nil, fmt.Errorf("discovery: find exited %d: %s", res.ExitCode, stderr)
		}
		loggerOr(f.Logger).Warn("find could not search every directory",
			"dir", dir, "exit_code", res.ExitCode, "stderr", stderr, "found", len(paths))
	}
	sort.Strings(paths)
	return paths, nil
}

// WalkFinder searches in-process with the same depth bound and glob rules.
type WalkFinder struct {
	MaxDepth int
	Logger   *slog.Logger
}

func (f *WalkFinder) Find(ctx context.Context, dir, pattern string) ([]string, error) {
	if err := validate(dir, pattern); err != nil {
		return nil, err
	}
	maxDepth := depthOr(f.MaxDepth)
	root := filepath.Clean(dir)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			// unreadable subdirectory; find(1) reports and continues
			loggerOr(f.Logger).Warn("cannot search directory", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		depth := depthOf(root, path)
		if d.IsDir() {
			if depth >= maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			paths = append(paths, joinLikeFind(dir, root, path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func depthOf(root, path string) int {
	if path == root {
		return 0
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// joinLikeFind keeps the caller's spelling of dir as the prefix, as find does.
func joinLikeFind(dir, root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir + rel
	}
	return dir + string(filepath.Separator) + rel
}
