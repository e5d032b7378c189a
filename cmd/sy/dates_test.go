package main

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		in        string
		wantDay   string
		wantClock bool
	}{
		{"2026-03-20", "2026-03-20", false},
		{"2026-03-20 14:30", "2026-03-20", true},
		{"tomorrow", "2026-03-05", false},
		{"in 3 days", "2026-03-07", false},
	}
	for _, tt := range tests {
		got, clock, err := parseWhen(tt.in, now)
		if err != nil {
			t.Errorf("parseWhen(%q) failed: %v", tt.in, err)
			continue
		}
		if got.Format("2006-01-02") != tt.wantDay {
			t.Errorf("parseWhen(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.wantDay)
		}
		if tt.in[0] == '2' && clock != tt.wantClock {
			t.Errorf("parseWhen(%q) clock = %v", tt.in, clock)
		}
	}

	if _, _, err := parseWhen("qwzx", now); err == nil {
		t.Error("expected error for nonsense input")
	}
}
