// Package target resolves the directory a recovery batch operates on.
package target

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
)

// Resolve returns the directory to search. When newest is false base is
// returned unchanged after validation; otherwise the most recently modified
// immediate subdirectory of base is returned.
func Resolve(base string, newest bool) (string, error) {
	if err := checkDir(base); err != nil {
		return "", err
	}
	if !newest {
		return base, nil
	}
	return Newest(base)
}

// Newest returns the immediate child directory of parent with the greatest
// modification time. Equal times keep the lexicographically first name.
// Only direct children are considered.
func Newest(parent string) (string, error) {
	if err := checkDir(parent); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", fmt.Errorf("target: read %s: %w", parent, errkind.ErrInvalidDirectory)
	}

	var (
		best      string
		bestMtime time.Time
	)
	for _, e := range entries {
		path := filepath.Join(parent, e.Name())
		// Stat follows symlinks so a link to a directory counts as one.
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestMtime) {
			best = path
			bestMtime = info.ModTime()
		}
	}

	if best == "" {
		return "", fmt.Errorf("target: no subdirectory in %s: %w", parent, errkind.ErrNoCandidateDirectory)
	}
	return best, nil
}

func checkDir(path string) error {
	if path == "" {
		return fmt.Errorf("target: directory path is empty: %w", errkind.ErrInvalidDirectory)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("target: %s: %w", path, errkind.ErrInvalidDirectory)
	}
	if !info.IsDir() {
		return fmt.Errorf("target: not a directory: %s: %w", path, errkind.ErrInvalidDirectory)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("target: unreadable %s: %w", path, errkind.ErrInvalidDirectory)
	}
	f.Close()
	return nil
}
