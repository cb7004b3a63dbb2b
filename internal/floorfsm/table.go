package floorfsm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lift-controller/internal/logic"
)

var (
	// ErrNoInitial is returned when a table does not document its reset floor.
	ErrNoInitial = errors.New("floorfsm: table has no initial floor")
	// ErrDuplicateState is returned when a floor code has two rows.
	ErrDuplicateState = errors.New("floorfsm: duplicate state")
)

// Row is one state of a transition table: the floor reached on the next tick
// for each value of the direction line.
type Row struct {
	State logic.FloorCode `yaml:"state"`
	Dir0  logic.FloorCode `yaml:"dir0"`
	Dir1  logic.FloorCode `yaml:"dir1"`
}

type tableFile struct {
	Name    string           `yaml:"name"`
	Initial *logic.FloorCode `yaml:"initial"`
	States  []Row            `yaml:"states"`
}

// Table is a Transitions implementation backed by a transition table that is
// supplied as data. States without a row hold their value.
type Table struct {
	name    string
	initial logic.FloorCode
	rows    map[logic.FloorCode]Row
}

// ParseTable decodes a YAML transition table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse transition table: %w", err)
	}
	if f.Initial == nil {
		return nil, ErrNoInitial
	}
	t := &Table{
		name:    f.Name,
		initial: *f.Initial,
		rows:    make(map[logic.FloorCode]Row, len(f.States)),
	}
	for _, r := range f.States {
		if _, ok := t.rows[r.State]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateState, r.State)
		}
		t.rows[r.State] = r
	}
	return t, nil
}

// LoadTable reads a transition table from a .yaml or .yml file.
func LoadTable(path string) (*Table, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("transition table must be YAML, got %q", ext)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read transition table: %w", err)
	}
	return ParseTable(data)
}

// Name returns the table's label.
func (t *Table) Name() string { return t.name }

// States returns the number of rows in the table.
func (t *Table) States() int { return len(t.rows) }

func (t *Table) Initial() logic.FloorCode { return t.initial }

func (t *Table) Next(current logic.FloorCode, direction bool) logic.FloorCode {
	r, ok := t.rows[current]
	if !ok {
		return current
	}
	if direction {
		return r.Dir1
	}
	return r.Dir0
}
