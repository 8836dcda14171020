package dataset

import (
	"fmt"
	"strings"
)

// Column is a named, ordered sequence of nullable cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is an ordered set of equally sized columns. Row count is uniform
// across columns and column names are unique; every mutating method
// preserves both invariants.
type Table struct {
	columns []Column
	index   map[string]int
}

// New creates an empty table with the given column names.
func New(names ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(names))}
	for _, name := range names {
		if _, exists := t.index[name]; exists {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, Column{Name: name})
	}
	return t, nil
}

// NumRows returns the uniform row count.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// ColumnNames returns the names in column order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the backing columns in order. Callers must not resize
// the value slices directly.
func (t *Table) Columns() []Column { return t.columns }

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.columns[i], true
}

// AppendRow appends one cell per column.
func (t *Table) AppendRow(cells []Value) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	for i := range t.columns {
		t.columns[i].Values = append(t.columns[i].Values, cells[i])
	}
	return nil
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for c := range t.columns {
		row[c] = t.columns[c].Values[i]
	}
	return row
}

// Set replaces the cell at (row, col name).
func (t *Table) Set(name string, row int, v Value) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	t.columns[i].Values[row] = v
	return nil
}

// RenameColumn changes a column's name, keeping names unique.
func (t *Table) RenameColumn(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("no column %q", from)
	}
	if from == to {
		return nil
	}
	if _, exists := t.index[to]; exists {
		return fmt.Errorf("column %q already exists", to)
	}
	delete(t.index, from)
	t.index[to] = i
	t.columns[i].Name = to
	return nil
}

// DropColumn removes a column, preserving the order of the rest.
func (t *Table) DropColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.columns); j++ {
		t.index[t.columns[j].Name] = j
	}
	return nil
}

// KeepRows retains only the rows whose index is marked true, preserving
// order.
func (t *Table) KeepRows(keep []bool) {
	for c := range t.columns {
		kept := t.columns[c].Values[:0]
		for i, v := range t.columns[c].Values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		t.columns[c].Values = kept
	}
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	clone := &Table{
		columns: make([]Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
	}
	for i, c := range t.columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		clone.columns[i] = Column{Name: c.Name, Values: values}
		clone.index[c.Name] = i
	}
	return clone
}

// RowKey builds a canonical fingerprint of row i for exact-duplicate
// detection. Two rows share a key iff every cell renders identically.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for c := range t.columns {
		if c > 0 {
			b.WriteByte(0x1f)
		}
		v := t.columns[c].Values[i]
		b.WriteString(v.Kind().String())
		b.WriteByte(':')
		b.WriteString(v.Format())
	}
	return b.String()
}

// MemoryEstimate approximates the in-memory footprint in bytes. Used for
// profile reporting only; not an allocator-accurate figure.
func (t *Table) MemoryEstimate() int64 {
	var total int64
	for _, c := range t.columns {
		total += int64(len(c.Name))
		for _, v := range c.Values {
			total += 48 // variant header
			if v.Kind() == KindString {
				total += int64(len(v.Str()))
			}
		}
	}
	return total
}
