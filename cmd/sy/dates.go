package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/studysync/studysync/internal/types"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

var isoLayouts = []string{
	types.DateLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

// parseWhen reads an ISO date or time, or a phrase like "next friday" or
// "tomorrow 3pm", relative to now. hasClock reports whether the input named
// a time of day.
func parseWhen(s string, now time.Time) (t time.Time, hasClock bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}
	for i, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, i > 0, nil
		}
	}

	r, err := dateParser.Parse(s, now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, false, fmt.Errorf("could not understand date %q (try YYYY-MM-DD)", s)
	}
	clock := r.Time.Hour() != now.Hour() || r.Time.Minute() != now.Minute()
	return r.Time, clock, nil
}

// parseDay is parseWhen truncated to midnight.
func parseDay(s string, now time.Time) (time.Time, error) {
	t, _, err := parseWhen(s, now)
	if err != nil {
		return time.Time{}, err
	}
	return types.TruncateDay(t), nil
}
