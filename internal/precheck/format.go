package precheck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatRunResult renders the checks as an aligned list followed by a
// verdict on whether a recovery batch can start.
func FormatRunResult(result RunResult) string {
	var b strings.Builder
	b.WriteString("Recovery Precheck")
	if result.Target != "" {
		fmt.Fprintf(&b, " for %s", result.Target)
	}
	b.WriteString("\n\n")

	width := 0
	for _, r := range result.Results {
		width = max(width, len(r.Name))
	}
	passed := 0
	for _, r := range result.Results {
		tag := "[FAIL]"
		if r.Passed {
			tag = "[PASS]"
			passed++
		}
		fmt.Fprintf(&b, "  %s %-*s  %s\n", tag, width, r.Name, r.Message)
	}

	verdict := "ready to recover"
	if !result.AllPassed {
		verdict = "not ready to recover"
	}
	fmt.Fprintf(&b, "\n%d of %d checks passed in %s: %s\n", passed, len(result.Results), result.Duration, verdict)
	return b.String()
}

// FormatRunResultJSON returns the RunResult as indented JSON.
func FormatRunResultJSON(result RunResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("precheck: json marshal: %w", err)
	}
	return string(data), nil
}
