package notion

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PropertyType is a Notion database property type.
type PropertyType string

const (
	PropTitle    PropertyType = "title"
	PropRichText PropertyType = "rich_text"
	PropDate     PropertyType = "date"
	PropSelect   PropertyType = "select"
	PropStatus   PropertyType = "status"
	PropNumber   PropertyType = "number"
	PropCheckbox PropertyType = "checkbox"
	PropURL      PropertyType = "url"
)

func (t PropertyType) valid() bool {
	switch t {
	case PropTitle, PropRichText, PropDate, PropSelect, PropStatus, PropNumber, PropCheckbox, PropURL:
		return true
	}
	return false
}

// Property names used by the default schemas.
const (
	PropName      = "Name"
	PropDue       = "Due"
	PropPriority  = "Priority"
	PropStatusCol = "Status"
	PropCategory  = "Category"
	PropEstimate  = "Estimate"
	PropNotes     = "Notes"
	PropUID       = "UID"
	PropWhen      = "When"
	PropEventType = "Event Type"
	PropLocation  = "Location"
	PropContact   = "Contact"
)

// Schema declares the properties a payload may carry.
type Schema struct {
	Name       string                  `yaml:"name"`
	Version    int                     `yaml:"version"`
	Properties map[string]PropertyType `yaml:"properties"`
	Required   []string                `yaml:"required"`
}

// Validate checks the schema is usable.
func (s *Schema) Validate() error {
	if s.Version < 1 {
		return fmt.Errorf("schema %q: version must be at least 1", s.Name)
	}
	if len(s.Properties) == 0 {
		return fmt.Errorf("schema %q: no properties", s.Name)
	}
	titles := 0
	for name, typ := range s.Properties {
		if !typ.valid() {
			return fmt.Errorf("schema %q: property %q has unsupported type %q", s.Name, name, typ)
		}
		if typ == PropTitle {
			titles++
		}
	}
	if titles != 1 {
		return fmt.Errorf("schema %q: exactly one title property is required (got %d)", s.Name, titles)
	}
	for _, r := range s.Required {
		if _, ok := s.Properties[r]; !ok {
			return fmt.Errorf("schema %q: required property %q is not declared", s.Name, r)
		}
	}
	return nil
}

// Has reports whether the schema declares a property.
func (s *Schema) Has(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// TaskSchema returns the default schema of the tasks database.
func TaskSchema() *Schema {
	return &Schema{
		Name:    "tasks",
		Version: 1,
		Properties: map[string]PropertyType{
			PropName:      PropTitle,
			PropDue:       PropDate,
			PropPriority:  PropSelect,
			PropStatusCol: PropStatus,
			PropCategory:  PropSelect,
			PropEstimate:  PropNumber,
			PropNotes:     PropRichText,
			PropUID:       PropRichText,
		},
		Required: []string{PropName, PropUID},
	}
}

// EventSchema returns the default schema of the events database.
func EventSchema() *Schema {
	return &Schema{
		Name:    "events",
		Version: 1,
		Properties: map[string]PropertyType{
			PropName:      PropTitle,
			PropWhen:      PropDate,
			PropEventType: PropSelect,
			PropLocation:  PropRichText,
			PropContact:   PropRichText,
			PropUID:       PropRichText,
		},
		Required: []string{PropName, PropWhen, PropUID},
	}
}

// Schemas groups the schema of each database.
type Schemas struct {
	Tasks  *Schema `yaml:"tasks"`
	Events *Schema `yaml:"events"`
}

// DefaultSchemas returns the built-in schemas.
func DefaultSchemas() *Schemas {
	return &Schemas{Tasks: TaskSchema(), Events: EventSchema()}
}

// LoadSchemas reads schema overrides from a YAML file. A database missing
// from the file keeps its default schema.
//
//	tasks:
//	  version: 2
//	  properties:
//	    Name: title
//	    Due: date
//	    UID: rich_text
//	  required: [Name, UID]
func LoadSchemas(path string) (*Schemas, error) {
	out := DefaultSchemas()
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	var file Schemas
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if file.Tasks != nil {
		if file.Tasks.Name == "" {
			file.Tasks.Name = "tasks"
		}
		out.Tasks = file.Tasks
	}
	if file.Events != nil {
		if file.Events.Name == "" {
			file.Events.Name = "events"
		}
		out.Events = file.Events
	}
	if err := errors.Join(out.Tasks.Validate(), out.Events.Validate()); err != nil {
		return nil, err
	}
	return out, nil
}

// Mismatch describes a difference between a schema and a live database.
type Mismatch struct {
	Property string
	Want     PropertyType
	// Got is empty when the property is missing remotely.
	Got PropertyType
}

func (m Mismatch) String() string {
	if m.Got == "" {
		return fmt.Sprintf("%s: missing (want %s)", m.Property, m.Want)
	}
	return fmt.Sprintf("%s: type %s (want %s)", m.Property, m.Got, m.Want)
}

// Check compares the schema with a database's properties, ordered by
// property name. The title property matches whatever the database calls its
// title column.
func (s *Schema) Check(db *Database) []Mismatch {
	var out []Mismatch
	for name, want := range s.Properties {
		prop, ok := db.Properties[name]
		if want == PropTitle && !ok {
			if dbTitle := titleColumn(db); dbTitle != "" {
				out = append(out, Mismatch{Property: name, Want: want, Got: PropertyType("title as " + dbTitle)})
				continue
			}
		}
		switch {
		case !ok:
			out = append(out, Mismatch{Property: name, Want: want})
		case prop.Type != want:
			out = append(out, Mismatch{Property: name, Want: want, Got: prop.Type})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Property < out[j].Property })
	return out
}

func titleColumn(db *Database) string {
	for name, p := range db.Properties {
		if p.Type == PropTitle {
			return name
		}
	}
	return ""
}
