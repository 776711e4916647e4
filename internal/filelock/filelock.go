// Package filelock keeps two recovery batches from running in the same work
// directory at once. The recovery tool writes a shared Recover.log there, so
// concurrent batches would clobber each other's logs.
package filelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockName is the lock file created in the work directory.
const LockName = ".fmrecovery.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock represents an acquired file lock.
type Lock struct {
	Path string
	file *os.File
}

// Meta is the on-disk metadata written alongside a lock file.
type Meta struct {
	PID       int    `json:"pid"`
	Timestamp string `json:"timestamp"`
}

// Acquire takes the lock for dir without blocking.
func Acquire(dir string) (*Lock, error) {
	lockPath := filepath.Join(dir, LockName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			holderPID := 0
			if meta, metaErr := ReadMeta(lockPath); metaErr == nil {
				holderPID = meta.PID
			}
			return nil, fmt.Errorf("%w (holder PID: %d)", ErrLocked, holderPID)
		}
		return nil, fmt.Errorf("flock: %w", err)
	}

	meta := Meta{
		PID:       os.Getpid(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(lockPath+".meta", metaData, 0644); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("write meta: %w", err)
	}

	return &Lock{Path: lockPath, file: f}, nil
}

// Release drops the flock and removes the lock and meta files.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	// Unlink before unlocking; a contender then locks a fresh file.
	_ = os.Remove(l.Path + ".meta")
	_ = os.Remove(l.Path)

	fd := int(l.file.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("flock LOCK_UN: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	return nil
}

// IsStale checks whether the lock at lockPath is stale by reading its .meta
// file and testing whether the recorded PID is still alive.
func IsStale(lockPath string) bool {
	meta, err := ReadMeta(lockPath)
	if err != nil {
		return true
	}

	proc, err := os.FindProcess(meta.PID)
	if err != nil {
		return true
	}

	// Signal 0 checks process existence without actually sending a signal.
	return proc.Signal(syscall.Signal(0)) != nil
}

// ReadMeta reads and parses the .meta JSON file associated with lockPath.
func ReadMeta(lockPath string) (Meta, error) {
	data, err := os.ReadFile(lockPath + ".meta")
	if err != nil {
		return Meta{}, fmt.Errorf("read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}
