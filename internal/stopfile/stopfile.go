// Package stopfile lets an operator halt a running recovery batch from
// outside the process by creating a file, typically ~/.fmrecovery/STOP.
package stopfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Name is the stop file created under the base directory.
const Name = "STOP"

const defaultPoll = 500 * time.Millisecond

// Switch watches a single stop file.
type Switch struct {
	path      string
	poll      time.Duration
	triggered atomic.Bool
}

// New returns a Switch for path.
func New(path string) *Switch {
	return &Switch{path: path, poll: defaultPoll}
}

// InDir returns a Switch for the stop file in dir.
func InDir(dir string) *Switch {
	return New(filepath.Join(dir, Name))
}

func (s *Switch) Path() string { return s.path }

// Engaged reports whether the stop file exists and the reason written to it.
func (s *Switch) Engaged() (bool, string) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		// Present but unreadable still counts.
		return !errors.Is(err, os.ErrNotExist), ""
	}
	return true, strings.TrimSpace(string(data))
}

// Engage creates the stop file with reason as its content.
func (s *Switch) Engage(reason string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(reason+"\n"), 0644)
}

// Clear removes the stop file. A missing file is not an error.
func (s *Switch) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Triggered reports whether Watch cancelled its context because of the stop
// file, even if the file has been removed since.
func (s *Switch) Triggered() bool {
	return s.triggered.Load()
}

// Watch returns a context that is cancelled as soon as the stop file
// appears, or when ctx is done.
func (s *Switch) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	watchCtx, cancel := context.WithCancel(ctx)

	if on, _ := s.Engaged(); on {
		s.triggered.Store(true)
		cancel()
		return watchCtx, cancel
	}

	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				if on, _ := s.Engaged(); on {
					s.triggered.Store(true)
					cancel()
					return
				}
			}
		}
	}()

	return watchCtx, cancel
}
