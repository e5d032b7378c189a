package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RemoteRef identifies a page in the workspace.
type RemoteRef struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// Page is a database page as returned by the API.
type Page struct {
	ID             string                     `json:"id"`
	URL            string                     `json:"url"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	Archived       bool                       `json:"archived"`
	Properties     map[string]json.RawMessage `json:"properties"`
}

// Ref returns the page's RemoteRef.
func (p *Page) Ref() RemoteRef {
	return RemoteRef{ID: p.ID, URL: p.URL}
}

// PlainText returns the concatenated plain text of a title or rich_text
// property, or "" when the property is absent or of another type.
func (p *Page) PlainText(name string) string {
	raw, ok := p.Properties[name]
	if !ok {
		return ""
	}
	var prop struct {
		Type     string         `json:"type"`
		Title    []richTextSpan `json:"title"`
		RichText []richTextSpan `json:"rich_text"`
	}
	if err := json.Unmarshal(raw, &prop); err != nil {
		return ""
	}
	spans := prop.RichText
	if prop.Type == "title" {
		spans = prop.Title
	}
	var sb strings.Builder
	for _, s := range spans {
		if s.PlainText != "" {
			sb.WriteString(s.PlainText)
		} else if s.Text != nil {
			sb.WriteString(s.Text.Content)
		}
	}
	return sb.String()
}

// Database is the metadata of a database.
type Database struct {
	ID         string                      `json:"id"`
	Title      []richTextSpan              `json:"title"`
	Properties map[string]DatabaseProperty `json:"properties"`
}

// Name returns the database title as plain text.
func (d *Database) Name() string {
	var sb strings.Builder
	for _, s := range d.Title {
		sb.WriteString(s.PlainText)
	}
	return sb.String()
}

// DatabaseProperty describes one column of a database.
type DatabaseProperty struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type PropertyType `json:"type"`
}

// User is the bot user behind the token.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreatePage creates a page in a database and returns its reference.
func (c *Client) CreatePage(ctx context.Context, databaseID string, p *Payload) (RemoteRef, error) {
	if databaseID == "" {
		return RemoteRef{}, fmt.Errorf("%w: database id is required", ErrValidation)
	}
	if p == nil {
		return RemoteRef{}, fmt.Errorf("%w: payload is required", ErrSchema)
	}
	body := map[string]any{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": p.Properties,
	}
	var page Page
	if err := c.do(ctx, "POST", "/pages", body, &page); err != nil {
		return RemoteRef{}, err
	}
	if page.ID == "" {
		return RemoteRef{}, fmt.Errorf("create page: response has no id")
	}
	return page.Ref(), nil
}

// UpdatePage replaces the given properties of an existing page. Properties
// not present in p are left untouched remotely.
func (c *Client) UpdatePage(ctx context.Context, ref RemoteRef, p *Payload) error {
	if ref.ID == "" {
		return fmt.Errorf("%w: page id is required", ErrValidation)
	}
	if p == nil {
		return fmt.Errorf("%w: payload is required", ErrSchema)
	}
	body := map[string]any{"properties": p.Properties}
	return c.do(ctx, "PATCH", "/pages/"+url.PathEscape(ref.ID), body, nil)
}

// RetrieveDatabase fetches database metadata, including its property types.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, "GET", "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// Me returns the bot user the token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, "GET", "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Ping verifies the token. It fails with ErrAuthentication when the token is
// rejected.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Me(ctx)
	return err
}

// QueryDatabase returns a lazy pager over the pages of a database matching
// filter. A nil filter matches every page.
func (c *Client) QueryDatabase(databaseID string, filter Filter) *Pager {
	return NewPager(func(ctx context.Context, cursor string) (*QueryResult, error) {
		body := map[string]any{"page_size": PageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		if filter != nil {
			body["filter"] = filter
		}
		var res QueryResult
		if err := c.do(ctx, "POST", "/databases/"+url.PathEscape(databaseID)+"/query", body, &res); err != nil {
			return nil, err
		}
		return &res, nil
	})
}

// Filter is a database query filter object.
type Filter map[string]any

// RichTextEquals matches pages whose rich_text property equals value.
func RichTextEquals(property, value string) Filter {
	return Filter{
		"property":  property,
		"rich_text": map[string]string{"equals": value},
	}
}
