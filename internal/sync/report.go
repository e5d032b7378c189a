package sync

import (
	"fmt"
	"time"

	"github.com/studysync/studysync/internal/types"
)

// Failure describes one item that could not be pushed.
type Failure struct {
	ItemID    string     `json:"item_id"`
	Kind      types.Kind `json:"kind"`
	Title     string     `json:"title"`
	ErrorKind ErrorKind  `json:"error_kind"`
	Message   string     `json:"message"`
}

// Report is the outcome of one reconcile pass.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run,omitempty"`
	// Aborted is set when the pass stopped before visiting every item.
	Aborted bool `json:"aborted,omitempty"`

	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Total returns the number of items visited.
func (r *Report) Total() int {
	return r.Created + r.Updated + r.Skipped + r.Failed
}

// Duration returns how long the pass took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// OK reports whether every visited item succeeded.
func (r *Report) OK() bool {
	return r.Failed == 0 && !r.Aborted
}

// Summary is a one-line human description.
func (r *Report) Summary() string {
	prefix := ""
	if r.DryRun {
		prefix = "dry run: "
	}
	s := fmt.Sprintf("%screated=%d updated=%d skipped=%d failed=%d", prefix, r.Created, r.Updated, r.Skipped, r.Failed)
	if r.Aborted {
		s += " (aborted)"
	}
	return s
}

func (r *Report) addFailure(it types.Item, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{
		ItemID:    it.ItemID(),
		Kind:      it.ItemKind(),
		Title:     it.ItemTitle(),
		ErrorKind: KindOf(err),
		Message:   err.Error(),
	})
}
