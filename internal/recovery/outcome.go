package recovery

import (
	"fmt"
	"time"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/recoverlog"
)

// Outcome is the per-file state: Pending → Skipped | Succeeded | Failed.
type Outcome int

const (
	Pending Outcome = iota
	Skipped
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "PENDING"
	case Skipped:
		return "SKIPPED"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Reason qualifies a Failed or Skipped outcome.
type Reason int

const (
	NoReason Reason = iota
	WrongExtension
	OutputArtifactMissing
	ToolReportedError
	InvocationFailed
	OutputPathOccupied
	LogReportedProblems
)

func (r Reason) String() string {
	switch r {
	case NoReason:
		return ""
	case WrongExtension:
		return "wrong_extension"
	case OutputArtifactMissing:
		return "output_artifact_missing"
	case ToolReportedError:
		return "tool_reported_error"
	case InvocationFailed:
		return "invocation_failed"
	case OutputPathOccupied:
		return "output_path_occupied"
	case LogReportedProblems:
		return "log_reported_problems"
	default:
		return "unknown"
	}
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Result is the machine-inspectable record for one file.
type Result struct {
	Path     string             `json:"path"`
	Output   string             `json:"output,omitempty"`
	Outcome  Outcome            `json:"outcome"`
	Reason   Reason             `json:"reason,omitempty"`
	ExitCode int                `json:"exit_code"`
	Duration time.Duration      `json:"duration_ns"`
	Stdout   string             `json:"stdout,omitempty"`
	Stderr   string             `json:"stderr,omitempty"`
	Log      *recoverlog.Report `json:"log,omitempty"`
	Err      error              `json:"-"`
	Message  string             `json:"message,omitempty"`
}

// Failed reports whether the file counts against the batch.
func (r Result) Failed() bool { return r.Outcome == Failed }

func failure(res Result, reason Reason, err error) Result {
	res.Outcome = Failed
	res.Reason = reason
	res.Err = err
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// Summary aggregates a batch.
type Summary struct {
	Directory string   `json:"directory"`
	Pattern   string   `json:"pattern"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Pending   int      `json:"not_attempted"`
	Results   []Result `json:"results"`
}

// Summarize counts outcomes.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		switch r.Outcome {
		case Succeeded:
			s.Succeeded++
		case Failed:
			s.Failed++
		case Skipped:
			s.Skipped++
		default:
			s.Pending++
		}
	}
	return s
}

// Err returns errkind.ErrRecoveryFailed when any file failed or was never
// attempted, nil otherwise.
func (s Summary) Err() error {
	if s.Failed == 0 && s.Pending == 0 {
		return nil
	}
	return fmt.Errorf("%d failed, %d not attempted of %d: %w", s.Failed, s.Pending, s.Total, errkind.ErrRecoveryFailed)
}

// Scrub returns a copy of s with clean applied to every text field that may
// echo the tool's command line: tool output, messages and log entries.
func (s Summary) Scrub(clean func(string) string) Summary {
	out := s
	out.Results = make([]Result, len(s.Results))
	for i, r := range s.Results {
		r.Stdout = clean(r.Stdout)
		r.Stderr = clean(r.Stderr)
		r.Message = clean(r.Message)
		if r.Log != nil {
			rep := *r.Log
			rep.Entries = scrubEntries(rep.Entries, clean)
			rep.Errors = scrubEntries(rep.Errors, clean)
			r.Log = &rep
		}
		out.Results[i] = r
	}
	return out
}

func scrubEntries(entries []recoverlog.Entry, clean func(string) string) []recoverlog.Entry {
	if entries == nil {
		return nil
	}
	out := make([]recoverlog.Entry, len(entries))
	for i, e := range entries {
		e.Message = clean(e.Message)
		out[i] = e
	}
	return out
}
