package e2e_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverSingleFile(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("Sales.fmp12")

	stdout, stderr, code := env.run(env.DataDir, "*.fmp12")

	require.Equal(t, 0, code, "stderr=%s", stderr)
	assert.Contains(t, stdout, "Directory being used: "+env.DataDir)
	assert.Contains(t, stdout, "[SUCCEEDED]")
	assert.NoFileExists(t, filepath.Join(env.DataDir, "Sales_recovered.fmp12"),
		"recovered copy must be removed")
	assert.FileExists(t, filepath.Join(env.DataDir, "Sales.fmp12"))
	assert.NoFileExists(t, filepath.Join(env.DataDir, ".fmrecovery.lock"))
}

func TestRecoverNewestSubdirectory(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("2025-06-01/Old.fmp12", "2025-06-03/New.fmp12")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(env.DataDir, "2025-06-01"), past, past))

	stdout, stderr, code := env.run("-n", env.DataDir, "*.fmp12")

	require.Equal(t, 0, code, "stderr=%s", stderr)
	assert.Contains(t, stdout, "Directory being used: "+filepath.Join(env.DataDir, "2025-06-03"))
	assert.Contains(t, stdout, "New.fmp12")
	assert.NotContains(t, stdout, "Old.fmp12")
}

func TestRecoverMixedBatch(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("A.fmp12", "B.fmp12", "C.fmp12")

	stdout, _, code := env.runWithEnv(map[string]string{"MOCK_FAIL_GLOB": "B.*"}, env.DataDir, "*.fmp12")

	assert.Equal(t, 2, code)
	assert.Equal(t, 2, strings.Count(stdout, "[SUCCEEDED]"))
	assert.Equal(t, 1, strings.Count(stdout, "[FAILED]"))
	assert.Contains(t, stdout, "unable to open")
	assert.Contains(t, stdout, "Unable to open file", "Recover.log errors are shown")
}

func TestRecoverNoMatches(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("readme.txt")

	_, stderr, code := env.run(env.DataDir, "*.fmp12")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no matching files")
}

func TestRecoverInvalidDirectory(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(filepath.Join(env.DataDir, "missing"), "*.fmp12")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "invalid directory")

	_, _, code = env.run()
	assert.Equal(t, 3, code)
}

func TestRecoverSecretsStayHidden(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("Enc.fmp12")
	argsFile := filepath.Join(t.TempDir(), "args")

	stdout, stderr, code := env.runWithEnv(map[string]string{
		"MOCK_ARGS_FILE":        argsFile,
		"FMRECOVERY_PASSPHRASE": "hunter2",
	}, "-v", env.DataDir, "*.fmp12")

	require.Equal(t, 0, code, "stderr=%s", stderr)
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-encryption_key hunter2")
	assert.NotContains(t, stdout, "hunter2")
	assert.NotContains(t, stderr, "hunter2")
}

func TestRecoverLogProblemsPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("Damaged.fmp12")
	mock := map[string]string{"MOCK_PROBLEMS": "4"}

	stdout, _, code := env.runWithEnv(mock, env.DataDir, "*.fmp12")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "log reports 4 problem(s)")

	cfg := filepath.Join(t.TempDir(), "strict.yaml")
	content := "tool:\n  binary: " + env.MockBin + "\n  fail_on_log_problems: true\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

	_, _, code = env.runWithEnv(mock, "--config", cfg, env.DataDir, "*.fmp12")
	assert.Equal(t, 2, code)
}

func TestRecoverExitCodePolicy(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("Odd.fmp12")
	mock := map[string]string{"MOCK_EXIT_CODE": "3"}

	_, _, code := env.runWithEnv(mock, env.DataDir, "*.fmp12")
	assert.Equal(t, 2, code, "non-zero tool exit fails the file by default")

	cfg := filepath.Join(t.TempDir(), "lenient.yaml")
	content := "tool:\n  binary: " + env.MockBin + "\n  treat_exit_code_as_failure: false\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

	stdout, _, code := env.runWithEnv(mock, "--config", cfg, env.DataDir, "*.fmp12")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "exit status 3")
}

func TestRecoverMarkdownFormat(t *testing.T) {
	env := newTestEnv(t)
	env.addFiles("A.fmp12")

	stdout, stderr, code := env.run("--format", "markdown", env.DataDir, "*.fmp12")

	require.Equal(t, 0, code, "stderr=%s", stderr)
	assert.Contains(t, stdout, "A.fmp12")
	assert.Contains(t, stdout, "SUCCEEDED")
}
