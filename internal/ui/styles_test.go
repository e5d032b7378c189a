package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestTable_Aligns(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	var buf bytes.Buffer
	Table(&buf, []string{"ID", "TITLE"}, [][]string{
		{"a1", "Short"},
		{"b22222", "Longer title"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[1], "Short")
	if col != strings.Index(lines[2], "Longer") || col != 8 {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Organic chemistry", 8); got != "Organic…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("Bio", 8); got != "Bio" {
		t.Errorf("Truncate short = %q", got)
	}
}
