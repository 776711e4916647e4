package discovery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backupTree lays out a FileMaker Server style backups folder.
func backupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"a.fmp12",
		"b.fmp12",
		"notes.txt",
		"DAILY_2025-01-01_0100/c.fmp12",
		"DAILY_2025-01-01_0100/RC_Data_FMS/deep.fmp12",
		"DAILY_2025-01-01_0100/RC_Data_FMS/x/deeper.fmp12",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("fm"), 0644))
	}
	return root
}

func finders(t *testing.T) map[string]Finder {
	t.Helper()
	m := map[string]Finder{"walk": &WalkFinder{}}
	if path, err := exec.LookPath("find"); err == nil {
		m["find"] = &ExecFinder{Runner: executor.New(executor.Options{Binary: path})}
	}
	return m
}

func TestFindDepthLimited(t *testing.T) {
	root := backupTree(t)
	want := []string{
		filepath.Join(root, "DAILY_2025-01-01_0100", "c.fmp12"),
		filepath.Join(root, "a.fmp12"),
		filepath.Join(root, "b.fmp12"),
	}
	for name, f := range finders(t) {
		t.Run(name, func(t *testing.T) {
			got, err := f.Find(context.Background(), root, "*.fmp12")
			require.NoError(t, err)
			assert.Equal(t, want, got)
			for _, p := range got {
				rel, _ := filepath.Rel(root, p)
				assert.LessOrEqual(t, strings.Count(rel, string(filepath.Separator))+1, 2)
				ok, _ := filepath.Match("*.fmp12", filepath.Base(p))
				assert.True(t, ok)
			}
		})
	}
}

func TestFindIdempotent(t *testing.T) {
	root := backupTree(t)
	for name, f := range finders(t) {
		t.Run(name, func(t *testing.T) {
			first, err := f.Find(context.Background(), root, "*")
			require.NoError(t, err)
			second, err := f.Find(context.Background(), root, "*")
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestFindNoMatchesIsEmpty(t *testing.T) {
	root := backupTree(t)
	for name, f := range finders(t) {
		t.Run(name, func(t *testing.T) {
			got, err := f.Find(context.Background(), root, "*.fp7")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestFindArgumentErrors(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "missing")
	for name, f := range finders(t) {
		t.Run(name, func(t *testing.T) {
			_, err := f.Find(context.Background(), "", "*.fmp12")
			assert.ErrorIs(t, err, errkind.ErrMissingArgument)

			_, err = f.Find(context.Background(), root, "")
			assert.ErrorIs(t, err, errkind.ErrMissingArgument)

			_, err = f.Find(context.Background(), missing, "*.fmp12")
			assert.ErrorIs(t, err, errkind.ErrInvalidDirectory)

			_, err = f.Find(context.Background(), root, "[")
			assert.ErrorIs(t, err, errkind.ErrMissingArgument)
		})
	}
}

func TestWalkFinderKeepsTrailingSlashSpelling(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.fmp12"), nil, 0644))

	got, err := (&WalkFinder{}).Find(context.Background(), root+"/", "*.fmp12")
	require.NoError(t, err)
	assert.Equal(t, []string{root + "/a.fmp12"}, got)
}

type fakeRunner struct {
	args   []string
	result executor.Result
	err    error
}

func (r *fakeRunner) Run(_ context.Context, args ...string) (executor.Result, error) {
	r.args = args
	return r.result, r.err
}

func TestExecFinderArgsAndParsing(t *testing.T) {
	root := t.TempDir()
	r := &fakeRunner{result: executor.Result{Stdout: root + "/z.fmp12\n" + root + "/a.fmp12\n\n"}}
	f := &ExecFinder{Runner: r, MaxDepth: 2}

	got, err := f.Find(context.Background(), root, "*.fmp12")
	require.NoError(t, err)
	assert.Equal(t, []string{root, "-maxdepth", "2", "-type", "f", "-name", "*.fmp12"}, r.args)
	assert.Equal(t, []string{root + "/a.fmp12", root + "/z.fmp12"}, got)
}

func TestExecFinderFailures(t *testing.T) {
	root := t.TempDir()

	f := &ExecFinder{Runner: &fakeRunner{err: errors.New("spawn failed")}}
	_, err := f.Find(context.Background(), root, "*")
	assert.Error(t, err)

	f = &ExecFinder{Runner: &fakeRunner{result: executor.Result{ExitCode: 1, Stderr: "permission denied"}}}
	_, err = f.Find(context.Background(), root, "*")
	assert.ErrorContains(t, err, "permission denied")
}

func TestExecFinderKeepsPartialResults(t *testing.T) {
	root := t.TempDir()
	var logs bytes.Buffer
	r := &fakeRunner{result: executor.Result{
		ExitCode: 1,
		Stdout:   root + "/b.fmp12\n" + root + "/a.fmp12\n",
		Stderr:   "find: '" + root + "/RC_Data_FMS': Permission denied\n",
	}}
	f := &ExecFinder{Runner: r, Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	got, err := f.Find(context.Background(), root, "*.fmp12")
	require.NoError(t, err)
	assert.Equal(t, []string{root + "/a.fmp12", root + "/b.fmp12"}, got)
	assert.Contains(t, logs.String(), "Permission denied")
}

func TestNewModes(t *testing.T) {
	f, err := New("walk", "/usr/bin/find", 2, nil)
	require.NoError(t, err)
	assert.IsType(t, &WalkFinder{}, f)

	f, err = New("find", "/usr/bin/find", 2, nil)
	require.NoError(t, err)
	assert.IsType(t, &ExecFinder{}, f)

	f, err = New("auto", "/nonexistent/find_xyz", 2, nil)
	require.NoError(t, err)
	assert.IsType(t, &WalkFinder{}, f)

	_, err = New("bogus", "", 2, nil)
	assert.Error(t, err)
}
