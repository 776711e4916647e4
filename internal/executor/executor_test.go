package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExecuteWithEcho(t *testing.T) {
	exec := New(Options{Binary: "echo", Timeout: 10 * time.Second})

	result, err := exec.Run(context.Background(), "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "echo", exec.Binary())
	assert.True(t, result.Duration > 0)
}

func TestExecuteNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo oops >&2\nexit 3\n")
	exec := New(Options{Binary: script, Timeout: 10 * time.Second})

	result, err := exec.Run(context.Background())
	require.NoError(t, err, "non-zero exit is not an invocation error")
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestExecuteTimeout(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	exec := New(Options{Binary: script, Timeout: 300 * time.Millisecond, WaitDelay: 100 * time.Millisecond})

	start := time.Now()
	result, err := exec.Run(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), 10*time.Second, "process should be killed on timeout")
}

func TestExecuteMissingBinary(t *testing.T) {
	exec := New(Options{Binary: "/nonexistent/binary_xyz"})
	_, err := exec.Run(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestExecuteNoBinary(t *testing.T) {
	_, err := New(Options{}).Run(context.Background())
	assert.Error(t, err)
}

func TestExecuteWorkingDir(t *testing.T) {
	dir := t.TempDir()
	exec := New(Options{Binary: "pwd", Dir: dir})

	result, err := exec.Run(context.Background())
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(result.Stdout))
	assert.Equal(t, want, got)
}

func TestExecuteStripEnv(t *testing.T) {
	t.Setenv("FMRECOVERY_TEST_SECRET", "hunter2")
	script := writeScript(t, "echo \"secret=$FMRECOVERY_TEST_SECRET\"\n")

	plain, err := New(Options{Binary: script}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, plain.Stdout, "secret=hunter2")

	stripped, err := New(Options{Binary: script, StripEnv: []string{"FMRECOVERY_TEST_SECRET"}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret=\n", stripped.Stdout)
}

func TestExecuteCancelled(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Binary: script}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
