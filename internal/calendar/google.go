package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/studysync/studysync/internal/types"
)

// GoogleProvider reads events from one Google calendar.
type GoogleProvider struct {
	srv        *gcal.Service
	calendarID string
}

// NewGoogleProvider builds a provider over an authorized client.
// calendarName is matched against the summaries of the user's calendars;
// "" or "primary" selects the primary calendar.
func NewGoogleProvider(ctx context.Context, client *http.Client, calendarName string) (*GoogleProvider, error) {
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewGoogleProviderWithService(ctx, srv, calendarName)
}

// NewGoogleProviderWithService resolves calendarName using srv.
func NewGoogleProviderWithService(ctx context.Context, srv *gcal.Service, calendarName string) (*GoogleProvider, error) {
	if calendarName == "" || calendarName == "primary" {
		return &GoogleProvider{srv: srv, calendarID: "primary"}, nil
	}

	var id string
	err := srv.CalendarList.List().Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == calendarName || item.Id == calendarName {
				id = item.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("calendar %q not found", calendarName)
	}
	return &GoogleProvider{srv: srv, calendarID: id}, nil
}

var errStopPaging = errors.New("stop paging")

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// CalendarID returns the resolved calendar id.
func (p *GoogleProvider) CalendarID() string { return p.calendarID }

// Events implements Provider. Recurring events are expanded into single
// instances; cancelled instances are dropped.
func (p *GoogleProvider) Events(ctx context.Context, from, to time.Time) ([]*types.Event, error) {
	call := p.srv.Events.List(p.calendarID).SingleEvents(true).OrderBy("startTime")
	if !from.IsZero() {
		call = call.TimeMin(from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		call = call.TimeMax(to.Format(time.RFC3339))
	}

	var out []*types.Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			e, err := p.convert(item)
			if err != nil {
				return err
			}
			if inRange(e.Start, from, to) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (p *GoogleProvider) convert(item *gcal.Event) (*types.Event, error) {
	start, allDay, err := parseEventTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	end, _, err := parseEventTime(item.End)
	if err != nil || !end.After(start) {
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(time.Hour)
		}
	}

	title := item.Summary
	if title == "" {
		title = "Untitled Event"
	}
	e := &types.Event{
		ID:       StableID("event", p.Name(), p.calendarID, item.Id),
		Title:    title,
		Start:    start,
		End:      end,
		Location: item.Location,
		AllDay:   allDay,
	}
	if item.Organizer != nil && !item.Organizer.Self {
		e.Contact = item.Organizer.Email
	}
	return e, nil
}

func parseEventTime(dt *gcal.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("missing time")
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err
	}
	if dt.Date != "" {
		loc := time.Local
		if dt.TimeZone != "" {
			if l, err := time.LoadLocation(dt.TimeZone); err == nil {
				loc = l
			}
		}
		t, err := time.ParseInLocation(types.DateLayout, dt.Date, loc)
		return t, true, err
	}
	return time.Time{}, false, fmt.Errorf("missing time")
}
