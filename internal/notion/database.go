package notion

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/studysync/studysync/internal/types"
)

// StatusOptions returns the options a new status property is created with,
// in task status order.
func StatusOptions() []string {
	var out []string
	for s := types.StatusTodo; s <= types.StatusDone; s++ {
		out = append(out, s.Display())
	}
	return out
}

type propertyConfig map[string]any

type optionList struct {
	Options []*option `json:"options"`
}

func newOptionList(names []string) optionList {
	list := optionList{Options: []*option{}}
	for _, n := range names {
		if o := optionOf(n); o != nil {
			list.Options = append(list.Options, o)
		}
	}
	return list
}

// createProperties returns the property configuration of a new database and
// the names of its status properties, which the API does not accept at
// creation and are added afterwards.
func (s *Schema) createProperties() (map[string]propertyConfig, []string) {
	props := make(map[string]propertyConfig, len(s.Properties))
	var status []string
	for name, typ := range s.Properties {
		switch typ {
		case PropStatus:
			status = append(status, name)
		case PropSelect:
			props[name] = propertyConfig{string(typ): newOptionList(nil)}
		case PropNumber:
			props[name] = propertyConfig{string(typ): map[string]string{"format": "number"}}
		default:
			props[name] = propertyConfig{string(typ): struct{}{}}
		}
	}
	sort.Strings(status)
	return props, status
}

// CreateDatabase creates a database under a parent page with the schema's
// properties, then adds its status properties.
func (c *Client) CreateDatabase(ctx context.Context, parentPageID, title string, s *Schema) (*Database, error) {
	if parentPageID == "" {
		return nil, fmt.Errorf("%w: parent page id is required", ErrValidation)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: schema is required", ErrSchema)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	props, status := s.createProperties()
	body := map[string]any{
		"parent":     map[string]string{"type": "page_id", "page_id": parentPageID},
		"title":      spans(title),
		"properties": props,
	}
	var db Database
	if err := c.do(ctx, "POST", "/databases", body, &db); err != nil {
		return nil, err
	}
	if db.ID == "" {
		return nil, fmt.Errorf("create database: response has no id")
	}

	for _, name := range status {
		updated, err := c.EnsureStatusProperty(ctx, &db, name)
		if err != nil {
			return nil, fmt.Errorf("database %s created but adding %q failed: %w", db.ID, name, err)
		}
		db = *updated
	}
	return &db, nil
}

// EnsureStatusProperty adds a status property named name to db unless the
// database already has it, and returns the resulting database.
func (c *Client) EnsureStatusProperty(ctx context.Context, db *Database, name string) (*Database, error) {
	if _, ok := db.Properties[name]; ok {
		return db, nil
	}
	body := map[string]any{
		"properties": map[string]propertyConfig{
			name: {string(PropStatus): newOptionList(StatusOptions())},
		},
	}
	var out Database
	if err := c.do(ctx, "PATCH", "/databases/"+url.PathEscape(db.ID), body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out = *db
	}
	return &out, nil
}
