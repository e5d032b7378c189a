// Package ui renders terminal output for the sy command.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/studysync/studysync/internal/types"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Init picks the color profile for out. Non-terminals and NO_COLOR get
// plain text.
func Init(out *os.File) {
	if !IsTerminal(out) || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 80.
func Width(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderHeader(s string) string { return headerStyle.Render(s) }

// RenderPriority colors a priority by urgency.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityUrgent:
		return failStyle.Render(p.String())
	case types.PriorityHigh:
		return warnStyle.Render(p.String())
	case types.PriorityLow:
		return mutedStyle.Render(p.String())
	default:
		return p.String()
	}
}

// RenderStatus colors a status.
func RenderStatus(s types.Status) string {
	switch s {
	case types.StatusDone:
		return passStyle.Render(s.Display())
	case types.StatusInProgress:
		return accentStyle.Render(s.Display())
	case types.StatusReview:
		return warnStyle.Render(s.Display())
	default:
		return s.Display()
	}
}

// Table writes rows as aligned columns. Widths are measured on the
// rendered cells so styled text lines up.
func Table(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	writeRow := func(cells []string, style func(string) string) {
		var sb strings.Builder
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			rendered := style(cell)
			sb.WriteString(rendered)
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
			}
		}
		fmt.Fprintln(w, sb.String())
	}

	writeRow(header, RenderHeader)
	for _, row := range rows {
		writeRow(row, func(s string) string { return s })
	}
}

// Truncate shortens s to n display columns with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 1 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
