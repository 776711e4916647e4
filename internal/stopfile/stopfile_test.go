package stopfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngaged(t *testing.T) {
	s := InDir(t.TempDir())

	on, _ := s.Engaged()
	assert.False(t, on)

	require.NoError(t, os.WriteFile(s.Path(), []byte("maintenance window\n"), 0644))
	on, reason := s.Engaged()
	assert.True(t, on)
	assert.Equal(t, "maintenance window", reason)
}

func TestEngageAndClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := InDir(dir)

	require.NoError(t, s.Engage("disk full"))
	on, reason := s.Engaged()
	assert.True(t, on)
	assert.Equal(t, "disk full", reason)

	require.NoError(t, s.Clear())
	on, _ = s.Engaged()
	assert.False(t, on)
	require.NoError(t, s.Clear(), "clearing twice is fine")
}

func TestWatchAlreadyEngaged(t *testing.T) {
	s := InDir(t.TempDir())
	require.NoError(t, s.Engage("stop"))

	ctx, cancel := s.Watch(context.Background())
	defer cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, s.Triggered())
}

func TestWatchDetectsFile(t *testing.T) {
	s := InDir(t.TempDir())
	s.poll = 10 * time.Millisecond

	parent, cancelParent := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelParent()
	ctx, cancel := s.Watch(parent)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Engage("stop")
	}()

	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, s.Triggered())
}

func TestWatchParentCancel(t *testing.T) {
	s := InDir(t.TempDir())

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := s.Watch(parent)
	defer cancel()

	cancelParent()
	<-ctx.Done()
	assert.False(t, s.Triggered())
}
