// Package errkind defines the error kinds shared by the recovery pipeline and
// maps them onto the documented process exit codes.
package errkind

import "errors"

var (
	// ErrUsage is returned for malformed command lines and flag values.
	ErrUsage = errors.New("invalid usage")
	// ErrMissingArgument is returned when a required directory or pattern is empty.
	ErrMissingArgument = errors.New("missing argument")
	// ErrInvalidDirectory is returned when a path is missing, unreadable or not a directory.
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrNoCandidateDirectory is returned when newest-directory mode finds no subdirectory.
	ErrNoCandidateDirectory = errors.New("no candidate directory")
	// ErrNoMatchingFiles is returned when discovery yields no files.
	ErrNoMatchingFiles = errors.New("no matching files")
	// ErrRecoveryToolInvocationFailed is returned when the recovery tool cannot be run or times out.
	ErrRecoveryToolInvocationFailed = errors.New("recovery tool invocation failed")
	// ErrOutputArtifactMissing is returned when the recovery tool produced no output file.
	ErrOutputArtifactMissing = errors.New("output artifact missing")
	// ErrRecoveryFailed is the aggregate error for a batch with at least one failed file.
	ErrRecoveryFailed = errors.New("one or more recoveries failed")
)

// Exit codes. The set is closed; callers never invent others.
const (
	ExitOK              = 0
	ExitNoMatchingFiles = 1
	ExitRecoveryFailed  = 2
	ExitInvalidInput    = 3
	ExitInternal        = 4
)

// ExitCodeFor maps err onto the closed exit code set.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoMatchingFiles):
		return ExitNoMatchingFiles
	case errors.Is(err, ErrRecoveryFailed),
		errors.Is(err, ErrOutputArtifactMissing),
		errors.Is(err, ErrRecoveryToolInvocationFailed):
		return ExitRecoveryFailed
	case errors.Is(err, ErrUsage),
		errors.Is(err, ErrMissingArgument),
		errors.Is(err, ErrInvalidDirectory),
		errors.Is(err, ErrNoCandidateDirectory):
		return ExitInvalidInput
	default:
		return ExitInternal
	}
}
