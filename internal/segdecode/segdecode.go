// Package segdecode maps floor codes to seven-segment patterns. The lookup
// table is an external collaborator and is loaded as data.
package segdecode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lift-controller/internal/logic"
)

// Decoder is a total, side-effect-free mapping from floor code to pattern.
type Decoder interface {
	Decode(logic.FloorCode) logic.Segments
}

// Func adapts a plain function to Decoder.
type Func func(logic.FloorCode) logic.Segments

func (f Func) Decode(c logic.FloorCode) logic.Segments { return f(c) }

// ErrNoBlank is returned when a table does not say what to show for codes it
// does not list.
var ErrNoBlank = errors.New("segdecode: table has no blank pattern")

type tableFile struct {
	Name     string                             `yaml:"name"`
	Blank    *logic.Segments                    `yaml:"blank"`
	Patterns map[logic.FloorCode]logic.Segments `yaml:"patterns"`
}

// Table is a lookup-table decoder. Codes missing from the table decode to the
// blank pattern.
type Table struct {
	name     string
	blank    logic.Segments
	patterns [1 << logic.FloorCodeWidth]logic.Segments
}

// ParseTable decodes a YAML lookup table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse segment table: %w", err)
	}
	if f.Blank == nil {
		return nil, ErrNoBlank
	}
	t := &Table{name: f.Name, blank: *f.Blank}
	for i := range t.patterns {
		t.patterns[i] = t.blank
	}
	for code, seg := range f.Patterns {
		t.patterns[code] = seg
	}
	return t, nil
}

// LoadTable reads a lookup table from a .yaml or .yml file.
func LoadTable(path string) (*Table, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("segment table must be YAML, got %q", ext)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment table: %w", err)
	}
	return ParseTable(data)
}

func (t *Table) Name() string { return t.name }

// Blank returns the pattern shown for unlisted codes.
func (t *Table) Blank() logic.Segments { return t.blank }

func (t *Table) Decode(c logic.FloorCode) logic.Segments {
	return t.patterns[c&logic.FloorCodeMask]
}
