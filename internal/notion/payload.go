package notion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTextLength is the API limit for a single rich text span.
	MaxTextLength = 2000

	// MaxSelectLength is the API limit for a select option name.
	MaxSelectLength = 100
)

// Payload is a validated set of page properties.
type Payload struct {
	SchemaName    string
	SchemaVersion int
	Properties    map[string]any
}

// MarshalJSON encodes the properties object.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Properties)
}

type textContent struct {
	Content string `json:"content"`
}

type richTextSpan struct {
	Type      string       `json:"type,omitempty"`
	Text      *textContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

type titleValue struct {
	Title []richTextSpan `json:"title"`
}

type richTextValue struct {
	RichText []richTextSpan `json:"rich_text"`
}

type option struct {
	Name string `json:"name"`
}

type selectValue struct {
	Select *option `json:"select"`
}

type statusValue struct {
	Status *option `json:"status"`
}

type dateRange struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

type dateValue struct {
	Date *dateRange `json:"date"`
}

type numberValue struct {
	Number *float64 `json:"number"`
}

type checkboxValue struct {
	Checkbox bool `json:"checkbox"`
}

type urlValue struct {
	URL *string `json:"url"`
}

// Builder assembles a Payload against a Schema. Errors are collected and
// reported together by Build.
//
//	p, err := notion.NewBuilder(notion.TaskSchema()).
//	    Title("Name", "Read chapter 4").
//	    Date("Due", due, time.Time{}, true).
//	    Select("Priority", "High").
//	    RichText("UID", id).
//	    Build()
type Builder struct {
	schema *Schema
	props  map[string]any
	errs   []error
}

// NewBuilder starts a payload for schema.
func NewBuilder(schema *Schema) *Builder {
	return &Builder{schema: schema, props: map[string]any{}}
}

func (b *Builder) check(name string, want PropertyType) bool {
	got, ok := b.schema.Properties[name]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("%w: unknown property %q in schema %s v%d", ErrSchema, name, b.schema.Name, b.schema.Version))
		return false
	}
	if got != want {
		b.errs = append(b.errs, fmt.Errorf("%w: property %q is %s, not %s", ErrSchema, name, got, want))
		return false
	}
	return true
}

func spans(text string) []richTextSpan {
	text = truncate(text, MaxTextLength)
	if text == "" {
		return []richTextSpan{}
	}
	return []richTextSpan{{Type: "text", Text: &textContent{Content: text}}}
}

// Title sets the page title.
func (b *Builder) Title(name, text string) *Builder {
	if b.check(name, PropTitle) {
		if strings.TrimSpace(text) == "" {
			b.errs = append(b.errs, fmt.Errorf("%w: title %q is empty", ErrSchema, name))
			return b
		}
		b.props[name] = titleValue{Title: spans(text)}
	}
	return b
}

// RichText sets a text property. Text longer than MaxTextLength is cut.
func (b *Builder) RichText(name, text string) *Builder {
	if b.check(name, PropRichText) {
		b.props[name] = richTextValue{RichText: spans(text)}
	}
	return b
}

// Select sets a select property. An empty value clears it.
func (b *Builder) Select(name, value string) *Builder {
	if b.check(name, PropSelect) {
		b.props[name] = selectValue{Select: optionOf(value)}
	}
	return b
}

// Status sets a status property.
func (b *Builder) Status(name, value string) *Builder {
	if b.check(name, PropStatus) {
		b.props[name] = statusValue{Status: optionOf(value)}
	}
	return b
}

// Date sets a date property. A zero start clears it; a zero end omits the
// end. With dateOnly the values are sent as calendar dates.
func (b *Builder) Date(name string, start, end time.Time, dateOnly bool) *Builder {
	if !b.check(name, PropDate) {
		return b
	}
	if start.IsZero() {
		b.props[name] = dateValue{}
		return b
	}
	if !end.IsZero() && end.Before(start) {
		b.errs = append(b.errs, fmt.Errorf("%w: date %q ends before it starts", ErrSchema, name))
		return b
	}
	layout := time.RFC3339
	if dateOnly {
		layout = "2006-01-02"
	}
	r := &dateRange{Start: start.Format(layout)}
	if !end.IsZero() {
		e := end.Format(layout)
		if !dateOnly || e != r.Start {
			r.End = &e
		}
	}
	b.props[name] = dateValue{Date: r}
	return b
}

// Number sets a number property.
func (b *Builder) Number(name string, v float64) *Builder {
	if b.check(name, PropNumber) {
		b.props[name] = numberValue{Number: &v}
	}
	return b
}

// Checkbox sets a checkbox property.
func (b *Builder) Checkbox(name string, v bool) *Builder {
	if b.check(name, PropCheckbox) {
		b.props[name] = checkboxValue{Checkbox: v}
	}
	return b
}

// URL sets a url property. An empty value clears it.
func (b *Builder) URL(name, v string) *Builder {
	if b.check(name, PropURL) {
		if v == "" {
			b.props[name] = urlValue{}
		} else {
			b.props[name] = urlValue{URL: &v}
		}
	}
	return b
}

// Build returns the payload, or every error collected so far.
func (b *Builder) Build() (*Payload, error) {
	errs := b.errs
	for _, r := range b.schema.Required {
		if _, ok := b.props[r]; !ok {
			errs = append(errs, fmt.Errorf("%w: required property %q not set", ErrSchema, r))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Payload{
		SchemaName:    b.schema.Name,
		SchemaVersion: b.schema.Version,
		Properties:    b.props,
	}, nil
}

func optionOf(value string) *option {
	// Commas are not allowed in option names.
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", " "))
	if value == "" {
		return nil
	}
	return &option{Name: truncate(value, MaxSelectLength)}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
