// Package schema holds the table and column metadata of the active dataset.
//
// The upload response is stored as returned by the agent service. Column
// descriptors arrive in two shapes, a bare name or a {name, type} pair;
// both decode into Column with the type defaulting to "text".
package schema

import (
	"encoding/json"
	"sort"
)

// DefaultColumnType is assumed when the service omits a column type.
const DefaultColumnType = "text"

// Column describes one column of a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UnmarshalJSON accepts either a bare string or a {name, type} object.
func (c *Column) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		c.Type = DefaultColumnType
		return nil
	}

	type alias Column
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Column(a)
	if c.Type == "" {
		c.Type = DefaultColumnType
	}
	return nil
}

// Table holds the column list and optional sample rows for one table.
// Column order is significant: it drives both header order and per-row
// value order wherever the table is rendered.
type Table struct {
	Columns    []Column `json:"columns"`
	SampleRows []Row    `json:"sample_rows,omitempty"`
}

// UnmarshalJSON accepts either a bare column array or the full object
// shape, matching what the upload endpoint may return per table.
func (t *Table) UnmarshalJSON(data []byte) error {
	var cols []Column
	if err := json.Unmarshal(data, &cols); err == nil {
		t.Columns = cols
		t.SampleRows = nil
		return nil
	}

	type alias Table
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Table(a)
	return nil
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Model is the read-only schema of the loaded dataset. It is replaced
// wholesale on a new upload and never mutated in place.
type Model struct {
	tables map[string]Table
}

// Load builds a Model from the upload response payload.
func Load(raw map[string]Table) *Model {
	tables := make(map[string]Table, len(raw))
	for name, t := range raw {
		tables[name] = t
	}
	return &Model{tables: tables}
}

// Tables returns the table names in sorted order.
func (m *Model) Tables() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table looks up one table by name.
func (m *Model) Table(name string) (Table, bool) {
	if m == nil {
		return Table{}, false
	}
	t, ok := m.tables[name]
	return t, ok
}

// Len returns the number of tables.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.tables)
}
