package notion

import (
	"context"
	"iter"
)

// PageSize is the number of results requested per query page.
const PageSize = 100

// QueryResult is one page of query results.
type QueryResult struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// PageFetcher fetches the page of results starting at cursor ("" for the
// first page).
type PageFetcher func(ctx context.Context, cursor string) (*QueryResult, error)

// Pager walks a paginated result set one page at a time. Nothing is fetched
// until Next is called. A failed fetch leaves the pager where it was, so
// calling Next again retries the same page.
//
// A Pager is not safe for concurrent use.
type Pager struct {
	fetch  PageFetcher
	cursor string
	done   bool
	pages  int
}

// NewPager returns a pager positioned before the first page.
func NewPager(fetch PageFetcher) *Pager {
	return &Pager{fetch: fetch}
}

// HasNext reports whether another page may be fetched.
func (p *Pager) HasNext() bool {
	return !p.done
}

// Next fetches the next page of results. It returns nil, nil once the
// sequence is exhausted.
func (p *Pager) Next(ctx context.Context) ([]Page, error) {
	if p.done {
		return nil, nil
	}
	res, err := p.fetch(ctx, p.cursor)
	if err != nil {
		return nil, err
	}
	p.pages++
	if !res.HasMore || res.NextCursor == "" {
		p.done = true
		p.cursor = ""
	} else {
		p.cursor = res.NextCursor
	}
	return res.Results, nil
}

// Fetched returns the number of pages fetched since the last Reset.
func (p *Pager) Fetched() int {
	return p.pages
}

// Reset positions the pager before the first page again.
func (p *Pager) Reset() {
	p.cursor = ""
	p.done = false
	p.pages = 0
}

// All yields every remaining result, fetching pages as the loop needs them.
// Breaking out of the loop stops fetching. A fetch error is yielded once and
// ends the sequence.
//
//	for page, err := range pager.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    if page.PlainText("UID") == uid {
//	        break
//	    }
//	}
func (p *Pager) All(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for p.HasNext() {
			results, err := p.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for i := range results {
				if !yield(&results[i], nil) {
					return
				}
			}
		}
	}
}
