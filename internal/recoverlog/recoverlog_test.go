package recoverlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanLog = "2025-06-03 10:15:22.123 -0700\tInvoices.fmp12\t0\tRecovery of \"Invoices.fmp12\" started\n" +
	"2025-06-03 10:15:30.456 -0700\tInvoices.fmp12\t0\tRecovery built new file without detecting any problems.\n"

const problemLog = "2025-06-03 10:15:22.123 -0700\tContacts.fmp12\t0\tRecovery of \"Contacts.fmp12\" started\n" +
	"2025-06-03 10:15:25.000 -0700\tContacts.fmp12\t0\tfield definitions: detected and fixed 3 problem(s)\n" +
	"2025-06-03 10:15:26.000 -0700\tContacts.fmp12\t8\tlayout \"Old List\" could not be recovered\n" +
	"\n" +
	"free-form trailer line\n"

func TestParseClean(t *testing.T) {
	rep, err := Parse(strings.NewReader(cleanLog))
	require.NoError(t, err)

	assert.Len(t, rep.Entries, 2)
	assert.Empty(t, rep.Errors)
	assert.Equal(t, 0, rep.ProblemsFound)
	assert.True(t, rep.Clean)
	assert.False(t, rep.HasProblems())

	first := rep.Entries[0]
	assert.Equal(t, "2025-06-03 10:15:22.123 -0700", first.Timestamp)
	assert.Equal(t, "Invoices.fmp12", first.File)
	assert.Equal(t, 0, first.Code)
}

func TestParseProblems(t *testing.T) {
	rep, err := Parse(strings.NewReader(problemLog))
	require.NoError(t, err)

	assert.Len(t, rep.Entries, 4, "blank lines are skipped")
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, 8, rep.Errors[0].Code)
	assert.Equal(t, 3, rep.ProblemsFound)
	assert.False(t, rep.Clean)
	assert.True(t, rep.HasProblems())
	assert.Equal(t, "free-form trailer line", rep.Entries[3].Message)
	assert.Empty(t, rep.Entries[3].File)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "Recover.log"))
	assert.ErrorIs(t, err, ErrNoLog)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Recover.log")
	require.NoError(t, os.WriteFile(path, []byte(cleanLog), 0644))

	rep, err := ParseFile(path)
	require.NoError(t, err)
	assert.True(t, rep.Clean)
}
