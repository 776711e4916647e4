package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatRunList returns a table of run records. Returns "No runs recorded.\n"
// if the slice is empty.
func FormatRunList(runs []RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-10s %-4s %-4s %-4s %-21s %s\n", "ID", "STATUS", "OK", "FAIL", "SKIP", "STARTED", "DIRECTORY")
	for _, r := range runs {
		fmt.Fprintf(&b, "%-36s %-10s %-4d %-4d %-4d %-21s %s\n",
			r.ID, r.Status, r.Succeeded, r.Failed, r.Skipped, r.StartedAt, r.Directory)
	}
	return b.String()
}

// FormatRun returns a run header followed by its file results.
func FormatRun(run RunRecord, files []FileRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s [%s]\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Directory: %s\nPattern:   %s\n", run.Directory, run.Pattern)
	fmt.Fprintf(&b, "Started:   %s\nEnded:     %s\n\n", run.StartedAt, run.EndedAt)
	for _, f := range files {
		fmt.Fprintf(&b, "  %-3d %-10s %s", f.Seq, f.Outcome, f.Path)
		if f.Reason != "" {
			fmt.Fprintf(&b, " (%s)", f.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRunListJSON returns the run records as indented JSON.
func FormatRunListJSON(runs []RunRecord) (string, error) {
	if runs == nil {
		runs = []RunRecord{}
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("history: json marshal: %w", err)
	}
	return string(data), nil
}
