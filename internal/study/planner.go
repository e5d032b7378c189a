package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/studysync/studysync/internal/types"
)

// Study day bounds: sessions start at DayStartHour or later and end by
// DayEndHour.
const (
	DayStartHour = 9
	DayEndHour   = 22
)

// PlanRequest describes an exam to prepare for.
type PlanRequest struct {
	ExamTitle    string
	ExamDate     time.Time
	TotalHours   int
	SessionHours int
	// Today bounds the search: no session is placed on or before it.
	Today time.Time
}

// Plan is the outcome of PlanStudySessions.
type Plan struct {
	Requested int            `json:"requested"`
	Sessions  []*types.Event `json:"sessions"`
}

// Complete reports whether every requested session found a slot.
func (p *Plan) Complete() bool {
	return len(p.Sessions) == p.Requested
}

type slot struct {
	day  string
	hour int
}

// PlanStudySessions places study sessions in free hour slots, starting the
// day before the exam and walking backwards until today. Within a day,
// candidate start hours run from DayStartHour in steps of the session
// length. busy events block every hour they touch.
func PlanStudySessions(req PlanRequest, busy []*types.Event) (*Plan, error) {
	if req.TotalHours <= 0 {
		return nil, fmt.Errorf("total hours must be positive (got %d)", req.TotalHours)
	}
	if req.SessionHours <= 0 {
		req.SessionHours = 2
	}
	if req.SessionHours > DayEndHour-DayStartHour {
		return nil, fmt.Errorf("session of %d hours does not fit in a study day", req.SessionHours)
	}
	if strings.TrimSpace(req.ExamTitle) == "" {
		return nil, fmt.Errorf("exam title is required")
	}

	loc := req.ExamDate.Location()
	sessions := (req.TotalHours + req.SessionHours - 1) / req.SessionHours
	plan := &Plan{Requested: sessions}

	taken := map[slot]bool{}
	for _, e := range busy {
		end := e.End
		if !end.After(e.Start) {
			end = e.Start.Add(time.Hour)
		}
		for t := e.Start.In(loc).Truncate(time.Hour); t.Before(end); t = t.Add(time.Hour) {
			taken[slot{t.Format(types.DateLayout), t.Hour()}] = true
		}
	}

	today := types.TruncateDay(req.Today.In(loc))
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(req.ExamTitle)), " ", "-")

	for day := types.TruncateDay(req.ExamDate).AddDate(0, 0, -1); len(plan.Sessions) < sessions && day.After(today); day = day.AddDate(0, 0, -1) {
		key := day.Format(types.DateLayout)
		for hour := DayStartHour; hour+req.SessionHours <= DayEndHour && len(plan.Sessions) < sessions; hour += req.SessionHours {
			free := true
			for i := 0; i < req.SessionHours; i++ {
				if taken[slot{key, hour + i}] {
					free = false
					break
				}
			}
			if !free {
				continue
			}

			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
			plan.Sessions = append(plan.Sessions, &types.Event{
				ID:        fmt.Sprintf("study-%s-%s-%02d00", slug, key, hour),
				Title:     "Study for: " + req.ExamTitle,
				Start:     start,
				End:       start.Add(time.Duration(req.SessionHours) * time.Hour),
				EventType: "study",
			})
			for i := 0; i < req.SessionHours; i++ {
				taken[slot{key, hour + i}] = true
			}
		}
	}
	return plan, nil
}
