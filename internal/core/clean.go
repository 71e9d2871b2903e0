package core

// clean.go applies a dataset's cleaning operations to a table.
//
// Operations run in the order they are listed and see the result of the
// previous one, so a fill_mean placed before a drop_missing averages over
// rows that drop_missing later removes. Operations on columns that are not
// in the table do nothing.

import (
	"fmt"
	"sort"
	"strings"
)

// OpResult reports what one operation changed.
type OpResult struct {
	Op      OpKind   `json:"op"`
	Columns []string `json:"columns,omitempty"`
	Changed int      `json:"changed"`
}

// CleanStats summarizes a Clean call.
type CleanStats struct {
	RowsIn     int        `json:"rows_in"`
	RowsOut    int        `json:"rows_out"`
	ColumnsIn  int        `json:"columns_in"`
	ColumnsOut int        `json:"columns_out"`
	Ops        []OpResult `json:"ops"`
}

// Clean applies ops to t in place.
// Returns an error only for malformed operations; t is untouched in that case.
func Clean(t *Table, ops []Operation) (CleanStats, error) {
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return CleanStats{}, fmt.Errorf("operation %d: %w", i+1, err)
		}
	}

	stats := CleanStats{
		RowsIn:    t.Len(),
		ColumnsIn: len(t.Columns),
		Ops:       make([]OpResult, 0, len(ops)),
	}
	for _, op := range ops {
		stats.Ops = append(stats.Ops, applyOperation(t, op))
	}
	stats.RowsOut = t.Len()
	stats.ColumnsOut = len(t.Columns)
	return stats, nil
}

func applyOperation(t *Table, op Operation) OpResult {
	res := OpResult{Op: op.Op}

	switch op.Op {
	case OpNormalizeHeaders:
		t.RenameColumns(func(c string) string {
			n := NormalizeHeader(c)
			if n != c {
				res.Changed++
			}
			return n
		})

	case OpToDatetime:
		for _, c := range presentColumns(t, op.Columns) {
			t.MapColumn(c, CoerceDatetime)
			res.Columns = append(res.Columns, c)
			res.Changed++
		}

	case OpToNumeric:
		for _, c := range presentColumns(t, op.Columns) {
			toNumeric(t, c)
			res.Columns = append(res.Columns, c)
			res.Changed++
		}

	case OpDropColumns:
		res.Columns = t.DropColumns(op.Columns...)
		res.Changed = len(res.Columns)

	case OpDropDuplicates:
		res.Changed = t.DropDuplicates()

	case OpFillMode:
		for _, c := range presentColumns(t, op.Columns) {
			vals, _ := t.Column(c)
			mode, ok := Mode(vals)
			if !ok {
				continue
			}
			res.Columns = append(res.Columns, c)
			res.Changed += t.FillNull(c, mode)
		}

	case OpFillMean:
		for _, c := range presentColumns(t, op.Columns) {
			vals, _ := t.Column(c)
			mean, ok := Mean(vals)
			if !ok {
				continue
			}
			res.Columns = append(res.Columns, c)
			res.Changed += fillMean(t, c, mean)
		}

	case OpFillValue:
		v := parseLiteral(op.Value)
		for _, c := range presentColumns(t, op.Columns) {
			res.Columns = append(res.Columns, c)
			res.Changed += t.FillNull(c, v)
		}

	case OpDropMissing:
		res.Columns = presentColumns(t, op.Columns)
		res.Changed = t.DropMissing(res.Columns...)

	case OpMapValues:
		for _, c := range presentColumns(t, op.Columns) {
			res.Columns = append(res.Columns, c)
			t.MapColumn(c, func(v Value) Value {
				if v.IsNull() {
					return v
				}
				res.Changed++
				if mapped, ok := op.Mapping[v.String()]; ok {
					return StringValue(mapped)
				}
				return Null()
			})
		}
	}

	return res
}

// NormalizeHeader trims surrounding whitespace and replaces spaces with
// underscores.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(h), " ", "_")
}

// Mode returns the most frequent non-null value of a column.
// Ties go to the smallest value. Reports false when every value is null.
func Mode(values []Value) (Value, bool) {
	counts := make(map[string]int)
	firsts := make(map[string]Value)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, ok := firsts[k]; !ok {
			firsts[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return Null(), false
	}

	candidates := make([]Value, 0, len(firsts))
	for _, v := range firsts {
		candidates = append(candidates, v)
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := counts[candidates[i].Key()], counts[candidates[j].Key()]
		if ci != cj {
			return ci > cj
		}
		return Compare(candidates[i], candidates[j]) < 0
	})
	return candidates[0], true
}

// Mean returns the average of the numeric values of a column.
// Non-numeric values are ignored. Reports false when there are none.
func Mean(values []Value) (float64, bool) {
	var sum float64
	n := 0
	for _, v := range values {
		if !v.IsNumeric() {
			continue
		}
		sum += v.Float()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// toNumeric coerces a column to numbers. A column holding both ints and
// floats afterwards is widened to floats.
func toNumeric(t *Table, column string) {
	t.MapColumn(column, CoerceNumeric)
	widenIfMixed(t, column)
}

// fillMean fills nulls with mean. Ints left in a filled column are widened
// to floats.
func fillMean(t *Table, column string, mean float64) int {
	filled := t.FillNull(column, FloatValue(mean))
	if filled > 0 {
		widenIfMixed(t, column)
	}
	return filled
}

func widenIfMixed(t *Table, column string) {
	idx := t.ColumnIndex(column)
	hasInt, hasFloat := false, false
	for _, row := range t.Rows {
		switch row[idx].Kind() {
		case KindInt:
			hasInt = true
		case KindFloat:
			hasFloat = true
		}
	}
	if !hasInt || !hasFloat {
		return
	}
	for _, row := range t.Rows {
		if row[idx].Kind() == KindInt {
			row[idx] = FloatValue(row[idx].Float())
		}
	}
}

// parseLiteral types a fill value the same way a CSV cell would be typed.
func parseLiteral(s string) Value {
	return InferColumn([]string{s})[0]
}

// presentColumns filters names down to the columns t has.
func presentColumns(t *Table, names []string) []string {
	var out []string
	for _, n := range names {
		if t.HasColumn(n) {
			out = append(out, n)
		}
	}
	return out
}
