package recovery

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// FormatResult returns a one-line description of a file result, starting
// with its outcome tag.
func FormatResult(r Result) string {
	line := fmt.Sprintf("[%s] %s", r.Outcome, r.Path)
	switch r.Outcome {
	case Succeeded:
		line += fmt.Sprintf(" (%.1fs)", r.Duration.Seconds())
		if r.Log != nil && r.Log.HasProblems() {
			line += fmt.Sprintf("; log reports %d problem(s), %d error line(s)", r.Log.ProblemsFound, len(r.Log.Errors))
		}
		if r.ExitCode != 0 {
			line += fmt.Sprintf("; exit status %d", r.ExitCode)
		}
	case Failed, Skipped:
		if r.Message != "" {
			line += ": " + r.Message
		}
	}
	return line
}

// FormatTotals returns the closing verdict line of a batch.
func FormatTotals(s Summary) string {
	verdict := "Recovery check passed"
	if s.Err() != nil {
		verdict = "Recovery check FAILED"
	}
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped, %d not attempted",
		verdict, s.Succeeded, s.Failed, s.Skipped, s.Pending)
}

// FormatSummaryJSON returns the summary as indented JSON.
func FormatSummaryJSON(s Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("recovery: json marshal: %w", err)
	}
	return string(data), nil
}

// FormatSummaryMarkdown returns the summary as a markdown table.
func FormatSummaryMarkdown(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recovery check\n\n`%s`", s.Directory)
	if s.Pattern != "" {
		fmt.Fprintf(&b, " (pattern `%s`)", s.Pattern)
	}
	b.WriteString("\n\n| File | Outcome | Exit | Problems | Detail |\n|---|---|---|---|---|\n")
	for _, r := range s.Results {
		problems := "-"
		if r.Log != nil {
			problems = fmt.Sprintf("%d", r.Log.ProblemsFound+len(r.Log.Errors))
		}
		detail := strings.ReplaceAll(r.Message, "|", `\|`)
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			filepath.Base(r.Path), r.Outcome, r.ExitCode, problems, detail)
	}
	fmt.Fprintf(&b, "\n**%d** succeeded, **%d** failed, **%d** skipped, **%d** not attempted.\n",
		s.Succeeded, s.Failed, s.Skipped, s.Pending)
	return b.String()
}
