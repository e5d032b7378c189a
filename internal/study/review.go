package study

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/studysync/studysync/internal/types"
)

// ReflectionPrompts are the fixed closing questions of a weekly review.
var ReflectionPrompts = []string{
	"What went well this week?",
	"What was challenging?",
	"What will I focus on next week to improve?",
}

// Metrics summarizes the tasks of a review window.
type Metrics struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
	HoursCompleted float64 `json:"hours_completed"`
	HoursRemaining float64 `json:"hours_remaining"`
	Events         int     `json:"events"`
}

// WeeklyReviewPage is a summary of one window of tasks and events.
type WeeklyReviewPage struct {
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	Accomplishments []*types.Task  `json:"accomplishments"`
	Priorities      []*types.Task  `json:"priorities"`
	Schedule        []*types.Event `json:"schedule"`
	Metrics         Metrics        `json:"metrics"`
	Prompts         []string       `json:"prompts"`
}

// WeekStart returns the Monday on or before d.
func WeekStart(d time.Time) time.Time {
	d = types.TruncateDay(d)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ComposeReview builds the review of the window [windowStart, windowEnd).
// Tasks belong to the window by due date and events by start time; tasks
// without a due date are left out. The result depends only on the inputs.
func ComposeReview(tasks []*types.Task, events []*types.Event, windowStart, windowEnd time.Time) *WeeklyReviewPage {
	page := &WeeklyReviewPage{
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		Accomplishments: []*types.Task{},
		Priorities:      []*types.Task{},
		Schedule:        []*types.Event{},
		Prompts:         append([]string(nil), ReflectionPrompts...),
	}

	inWindow := func(t time.Time) bool {
		return !t.Before(windowStart) && t.Before(windowEnd)
	}

	for _, t := range tasks {
		if !t.HasDue() || !inWindow(t.Due) {
			continue
		}
		page.Metrics.Total++
		if t.IsDone() {
			page.Metrics.Completed++
			page.Metrics.HoursCompleted += t.EstimatedHours
			page.Accomplishments = append(page.Accomplishments, t)
		} else {
			page.Metrics.Pending++
			page.Metrics.HoursRemaining += t.EstimatedHours
			page.Priorities = append(page.Priorities, t)
		}
	}
	for _, e := range events {
		if inWindow(e.Start) {
			page.Schedule = append(page.Schedule, e)
		}
	}
	page.Metrics.Events = len(page.Schedule)
	if page.Metrics.Total > 0 {
		page.Metrics.CompletionRate = float64(page.Metrics.Completed) / float64(page.Metrics.Total)
	}

	sort.SliceStable(page.Accomplishments, func(i, j int) bool {
		a, b := page.Accomplishments[i], page.Accomplishments[j]
		if !a.Due.Equal(b.Due) {
			return a.Due.Before(b.Due)
		}
		return tieBreak(a, b)
	})
	sort.SliceStable(page.Priorities, func(i, j int) bool {
		a, b := page.Priorities[i], page.Priorities[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Due.Equal(b.Due) {
			return a.Due.Before(b.Due)
		}
		return tieBreak(a, b)
	})
	sort.SliceStable(page.Schedule, func(i, j int) bool {
		a, b := page.Schedule[i], page.Schedule[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})
	return page
}

func tieBreak(a, b *types.Task) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

// ReviewID is the deterministic id of the review task for a window.
func (p *WeeklyReviewPage) ReviewID() string {
	return "weekly-review-" + p.WindowStart.Format(types.DateLayout)
}

// Title is the review page title.
func (p *WeeklyReviewPage) Title() string {
	return "Weekly Review: " + p.WindowStart.Format(types.DateLayout)
}

// Markdown renders the review sections in their fixed order.
func (p *WeeklyReviewPage) Markdown() string {
	var sb strings.Builder

	sb.WriteString("## Accomplishments\n")
	if len(p.Accomplishments) == 0 {
		sb.WriteString("No completed tasks in this window.\n")
	}
	for _, t := range p.Accomplishments {
		fmt.Fprintf(&sb, "- [x] %s\n", t.Title)
	}

	sb.WriteString("\n## Priorities\n")
	if len(p.Priorities) == 0 {
		sb.WriteString("No open tasks in this window.\n")
	}
	for _, t := range p.Priorities {
		fmt.Fprintf(&sb, "- [ ] %s (%s, due %s)\n", t.Title, t.Priority, t.Due.Format("Monday, Jan 02"))
	}

	sb.WriteString("\n## Schedule\n")
	if len(p.Schedule) == 0 {
		sb.WriteString("No events in this window.\n")
	}
	for _, e := range p.Schedule {
		line := fmt.Sprintf("- %s %s", e.Start.Format("Mon Jan 02 15:04"), e.Title)
		if e.Location != "" {
			line += " @ " + e.Location
		}
		sb.WriteString(line + "\n")
	}

	m := p.Metrics
	sb.WriteString("\n## Metrics\n")
	fmt.Fprintf(&sb, "- Completed: %d of %d (%.0f%%)\n", m.Completed, m.Total, m.CompletionRate*100)
	fmt.Fprintf(&sb, "- Hours completed: %.1f\n", m.HoursCompleted)
	fmt.Fprintf(&sb, "- Hours remaining: %.1f\n", m.HoursRemaining)
	fmt.Fprintf(&sb, "- Events: %d\n", m.Events)

	sb.WriteString("\n## Reflection\n")
	for i, q := range p.Prompts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	return sb.String()
}

// Task converts the review into a task due on the window start so it can be
// stored and pushed like any other task.
func (p *WeeklyReviewPage) Task() *types.Task {
	return &types.Task{
		ID:       p.ReviewID(),
		Title:    p.Title(),
		Category: "Review",
		Due:      types.TruncateDay(p.WindowStart),
		Priority: types.PriorityMedium,
		Status:   types.StatusTodo,
		Notes:    p.Markdown(),
	}
}
