// Package importer loads tasks and events from flat files into the local
// store.
//
// Three formats carry the same records:
//
//   - JSON: the legacy calendar.json array, one object per item with a
//     "type" of "task" or "event".
//   - TOML: [[task]] and [[event]] tables.
//   - YAML: either a list like the JSON array or a mapping with "task" and
//     "event" lists.
//
// Item ids are derived from the identifying fields of each record, so
// importing the same file twice updates items in place.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer format of %s (use .json, .toml or .yaml)", path)
	}
}

// Record is one item as written in an import file. Field names follow the
// legacy calendar.json keys.
type Record struct {
	Type string `json:"type" toml:"type" yaml:"type"`

	// Task fields
	Task     string  `json:"task,omitempty" toml:"task" yaml:"task,omitempty"`
	DueDate  string  `json:"due_date,omitempty" toml:"due_date" yaml:"due_date,omitempty"`
	Priority string  `json:"priority,omitempty" toml:"priority" yaml:"priority,omitempty"`
	Status   string  `json:"status,omitempty" toml:"status" yaml:"status,omitempty"`
	Category string  `json:"category,omitempty" toml:"category" yaml:"category,omitempty"`
	Hours    float64 `json:"estimated_hours,omitempty" toml:"estimated_hours" yaml:"estimated_hours,omitempty"`
	Notes    string  `json:"notes,omitempty" toml:"notes" yaml:"notes,omitempty"`

	// Event fields
	Event     string `json:"event,omitempty" toml:"event" yaml:"event,omitempty"`
	EventType string `json:"eventtype,omitempty" toml:"eventtype" yaml:"eventtype,omitempty"`
	Location  string `json:"location,omitempty" toml:"location" yaml:"location,omitempty"`
	Room      string `json:"room,omitempty" toml:"room" yaml:"room,omitempty"`
	Contact   string `json:"contact,omitempty" toml:"contact" yaml:"contact,omitempty"`
	Date      string `json:"date,omitempty" toml:"date" yaml:"date,omitempty"`
	Start     string `json:"start,omitempty" toml:"start" yaml:"start,omitempty"`
	End       string `json:"end,omitempty" toml:"end" yaml:"end,omitempty"`
}

// tableFile is the TOML and YAML mapping layout.
type tableFile struct {
	Tasks  []Record `toml:"task" yaml:"task"`
	Events []Record `toml:"event" yaml:"event"`
}

// ReadFile decodes the records of the file at path.
func ReadFile(path string) ([]Record, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(format, f)
}

// Decode reads every record from r.
func Decode(format Format, r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	switch format {
	case FormatJSON:
		var recs []Record
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return recs, nil

	case FormatTOML:
		var tf tableFile
		if _, err := toml.Decode(string(data), &tf); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		return tf.records(), nil

	case FormatYAML:
		trimmed := bytes.TrimSpace(data)
		if bytes.HasPrefix(trimmed, []byte("-")) {
			var recs []Record
			if err := yaml.Unmarshal(data, &recs); err != nil {
				return nil, fmt.Errorf("decode yaml: %w", err)
			}
			return recs, nil
		}
		var tf tableFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return tf.records(), nil

	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func (tf *tableFile) records() []Record {
	out := make([]Record, 0, len(tf.Tasks)+len(tf.Events))
	for _, r := range tf.Tasks {
		r.Type = "task"
		out = append(out, r)
	}
	for _, r := range tf.Events {
		r.Type = "event"
		out = append(out, r)
	}
	return out
}
