package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/study"
	syncengine "github.com/studysync/studysync/internal/sync"
	"github.com/studysync/studysync/internal/types"
)

// ReviewResponse is returned by GET /api/review.
type ReviewResponse struct {
	*study.WeeklyReviewPage
	ID       string `json:"id"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// NextReviewResponse is returned by GET /api/schedules/{id}/next.
type NextReviewResponse struct {
	ScheduleID string      `json:"schedule_id"`
	SourceID   string      `json:"source_id"`
	Next       *string     `json:"next"`
	Due        bool        `json:"due"`
	Remaining  []string    `json:"remaining"`
	Cursor     int         `json:"cursor"`
	Offsets    []int       `json:"offsets"`
	Exhausted  bool        `json:"exhausted"`
	Source     *types.Task `json:"source,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.syncer.LastReport()
	if report == nil {
		writeJSONError(w, http.StatusNotFound, "no sync has run yet")
		return
	}
	writeJSON(w, http.StatusOK, ReportData{Report: report})
}

// handleSync runs a pass synchronously. A pass already in flight answers
// 409; a failed pass answers 502 with whatever partial report exists.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.syncer.Reconcile(r.Context())
	if errors.Is(err, syncengine.ErrSyncInProgress) {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	s.PublishReport(report, err)

	data := ReportData{Report: report}
	status := http.StatusOK
	if err != nil {
		data.Error = err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, data)
}

// handleReview composes the review for ?start=&end= (YYYY-MM-DD). start
// defaults to the Monday of the current week and end to start plus seven
// days.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	start := study.WeekStart(s.config.Now())
	if v := r.URL.Query().Get("start"); v != "" {
		d, err := time.ParseInLocation(types.DateLayout, v, time.Local)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start = d
	}
	end := start.AddDate(0, 0, 7)
	if v := r.URL.Query().Get("end"); v != "" {
		d, err := time.ParseInLocation(types.DateLayout, v, time.Local)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
		end = d
	}
	if !end.After(start) {
		writeJSONError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	tasks, err := s.store.ListTasks(store.TaskFilter{IncludeDone: true})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	events, err := s.store.ListEvents(start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	page := study.ComposeReview(tasks, events, start, end)
	writeJSON(w, http.StatusOK, ReviewResponse{
		WeeklyReviewPage: page,
		ID:               page.ReviewID(),
		Title:            page.Title(),
		Markdown:         page.Markdown(),
	})
}

func (s *Server) handleScheduleNext(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.GetSchedule(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := NextReviewResponse{
		ScheduleID: sched.ID,
		SourceID:   sched.SourceID,
		Due:        study.IsDue(sched, s.config.Now()),
		Remaining:  []string{},
		Cursor:     sched.Cursor,
		Offsets:    sched.Offsets,
		Exhausted:  sched.Exhausted(),
	}
	if next, ok := study.NextReview(sched); ok {
		v := next.Format(types.DateLayout)
		resp.Next = &v
	}
	for _, d := range study.Remaining(sched) {
		resp.Remaining = append(resp.Remaining, d.Format(types.DateLayout))
	}
	if src, err := s.store.GetTask(sched.SourceID); err == nil {
		resp.Source = src
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
