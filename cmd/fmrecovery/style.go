package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lyndonlyu/fmrecovery/internal/recovery"
)

var (
	styleBanner  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleSpinner = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	styleOutcome = map[recovery.Outcome]lipgloss.Style{
		recovery.Succeeded: styleSuccess,
		recovery.Skipped:   styleWarn,
		recovery.Failed:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		recovery.Pending:   styleDim,
	}
)

func renderOutcome(o recovery.Outcome) string {
	tag := "[" + o.String() + "]"
	if s, ok := styleOutcome[o]; ok {
		return s.Render(tag)
	}
	return tag
}
