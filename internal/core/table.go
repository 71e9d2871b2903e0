package core

// table.go holds the in-memory table every pipeline step works on.
//
// A Table is column-ordered: Columns names the headers and each row holds
// exactly len(Columns) values. Operations mutate the table in place and
// report how much they changed so steps can log it.

import "fmt"

// Table is an ordered set of named columns and typed rows.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// ColumnNulls is the missing-value count for one column.
type ColumnNulls struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the first column with that name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column with that name.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns a copy of the values of a column.
func (t *Table) Column(name string) ([]Value, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column not found: %s", name)
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// AppendRow adds a row, padding with nulls or truncating to the header width.
func (t *Table) AppendRow(row []Value) {
	width := len(t.Columns)
	r := make([]Value, width)
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// AddColumn appends a column filled with nulls and returns its index.
func (t *Table) AddColumn(name string) int {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], Null())
	}
	return len(t.Columns) - 1
}

// RenameColumns applies fn to every header.
func (t *Table) RenameColumns(fn func(string) string) {
	for i, c := range t.Columns {
		t.Columns[i] = fn(c)
	}
}

// DropColumns removes the named columns. Names that are not present are ignored.
// Returns the names actually removed.
func (t *Table) DropColumns(names ...string) []string {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	keep := make([]int, 0, len(t.Columns))
	var dropped []string
	for i, c := range t.Columns {
		if drop[c] {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return nil
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		t.Rows[r] = nr
	}
	t.Columns = cols
	return dropped
}

// DropDuplicates removes rows identical to an earlier row across all columns,
// keeping the first occurrence. Returns the number of rows removed.
func (t *Table) DropDuplicates() int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

// DropMissing removes rows that are null in any of the named columns.
// Columns not present are ignored. Returns the number of rows removed.
func (t *Table) DropMissing(columns ...string) int {
	var idx []int
	for _, c := range columns {
		if i := t.ColumnIndex(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}

	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		missing := false
		for _, i := range idx {
			if row[i].IsNull() {
				missing = true
				break
			}
		}
		if missing {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

// FillNull replaces nulls in a column with v. Returns the number of cells filled.
func (t *Table) FillNull(column string, v Value) int {
	idx := t.ColumnIndex(column)
	if idx < 0 || v.IsNull() {
		return 0
	}
	filled := 0
	for _, row := range t.Rows {
		if row[idx].IsNull() {
			row[idx] = v
			filled++
		}
	}
	return filled
}

// MapColumn replaces every value of a column with fn(value).
// Reports false when the column is not present.
func (t *Table) MapColumn(column string, fn func(Value) Value) bool {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return false
	}
	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
	return true
}

// NullCounts returns the missing-value count of every column, in column order.
func (t *Table) NullCounts() []ColumnNulls {
	counts := make([]ColumnNulls, len(t.Columns))
	for i, c := range t.Columns {
		counts[i].Column = c
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if v.IsNull() {
				counts[i].Count++
			}
		}
	}
	return counts
}

// rowKey builds a string identifying a row's full contents.
func rowKey(row []Value) string {
	n := 0
	for _, v := range row {
		n += len(v.Key()) + 1
	}
	b := make([]byte, 0, n)
	for _, v := range row {
		b = append(b, v.Key()...)
		b = append(b, 0x1f)
	}
	return string(b)
}
