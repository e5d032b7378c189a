package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/studysync/studysync/internal/types"
)

// ICSProvider reads events from an iCalendar file path or http(s) URL.
type ICSProvider struct {
	Source string

	// HTTPClient is used for URL sources. Defaults to a client with a 30s
	// timeout.
	HTTPClient *http.Client

	// Location applies to floating times and all-day dates. Defaults to
	// time.Local.
	Location *time.Location
}

// NewICSProvider returns a provider for source.
func NewICSProvider(source string) (*ICSProvider, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("ics source is required")
	}
	return &ICSProvider{Source: source}, nil
}

// Name implements Provider.
func (p *ICSProvider) Name() string { return "ics" }

// Events implements Provider.
func (p *ICSProvider) Events(ctx context.Context, from, to time.Time) ([]*types.Event, error) {
	rc, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cal, err := ics.ParseCalendar(rc)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}
	return p.convert(cal, from, to)
}

func (p *ICSProvider) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(p.Source, "http://") && !strings.HasPrefix(p.Source, "https://") {
		f, err := os.Open(p.Source)
		if err != nil {
			return nil, fmt.Errorf("open ics file: %w", err)
		}
		return f, nil
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("build ics request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch ics: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func (p *ICSProvider) convert(cal *ics.Calendar, from, to time.Time) ([]*types.Event, error) {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}

	var out []*types.Event
	for _, ve := range cal.Events() {
		allDay := isAllDay(ve)

		var start, end time.Time
		var err error
		if allDay {
			start, err = ve.GetAllDayStartAt()
		} else {
			start, err = ve.GetStartAt()
		}
		if err != nil {
			// VEVENTs without a usable DTSTART cannot be placed on a day.
			continue
		}
		if allDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			end = start.AddDate(0, 0, 1)
		} else {
			start = start.In(loc)
			if e, err := ve.GetEndAt(); err == nil && e.After(start) {
				end = e.In(loc)
			} else {
				end = start.Add(time.Hour)
			}
		}
		if !inRange(start, from, to) {
			continue
		}

		title := propValue(ve, ics.ComponentPropertySummary)
		if title == "" {
			title = "Untitled Event"
		}
		location := propValue(ve, ics.ComponentPropertyLocation)

		startClock, endClock := "", ""
		if !allDay {
			startClock, endClock = start.Format("15:04:05"), end.Format("15:04:05")
		}
		out = append(out, &types.Event{
			ID: StableID("event", title, p.Name(), location,
				start.Format(types.DateLayout), startClock, endClock),
			Title:    title,
			Start:    start,
			End:      end,
			Location: location,
			AllDay:   allDay,
		})
	}
	return out, nil
}

func propValue(ve *ics.VEvent, prop ics.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// isAllDay reports whether DTSTART is a bare DATE.
func isAllDay(ve *ics.VEvent) bool {
	p := ve.GetProperty(ics.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	for _, v := range p.ICalParameters["VALUE"] {
		if strings.EqualFold(v, "DATE") {
			return true
		}
	}
	return len(p.Value) == len("20060102")
}
