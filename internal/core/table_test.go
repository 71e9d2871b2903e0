package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestTable() *Table {
	t := NewTable([]string{"id", "city", "amount"})
	t.AppendRow([]Value{IntValue(1), StringValue("MUMBAI"), FloatValue(10)})
	t.AppendRow([]Value{IntValue(2), Null(), FloatValue(20)})
	t.AppendRow([]Value{IntValue(1), StringValue("MUMBAI"), FloatValue(10)})
	t.AppendRow([]Value{IntValue(3), StringValue("PUNE"), Null()})
	return t
}

func TestTable_AppendRowPadsAndTruncates(t *testing.T) {
	tbl := NewTable([]string{"a", "b"})
	tbl.AppendRow([]Value{IntValue(1)})
	tbl.AppendRow([]Value{IntValue(1), IntValue(2), IntValue(3)})

	if len(tbl.Rows[0]) != 2 || !tbl.Rows[0][1].IsNull() {
		t.Errorf("short row not padded: %v", tbl.Rows[0])
	}
	if len(tbl.Rows[1]) != 2 {
		t.Errorf("long row not truncated: %v", tbl.Rows[1])
	}
}

func TestTable_Column(t *testing.T) {
	tbl := newTestTable()

	got, err := tbl.Column("id")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	want := []Value{IntValue(1), IntValue(2), IntValue(1), IntValue(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Column(id) mismatch (-want +got):\n%s", diff)
	}

	if _, err := tbl.Column("missing"); err == nil {
		t.Error("expected error for missing column")
	}
}

func TestTable_DropColumns(t *testing.T) {
	tbl := newTestTable()

	dropped := tbl.DropColumns("city", "not_there")
	if diff := cmp.Diff([]string{"city"}, dropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "amount"}, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	for i, row := range tbl.Rows {
		if len(row) != 2 {
			t.Errorf("row %d has %d values, want 2", i, len(row))
		}
	}

	if got := tbl.DropColumns("nope"); got != nil {
		t.Errorf("DropColumns(nope) = %v, want nil", got)
	}
}

func TestTable_DropDuplicates(t *testing.T) {
	tbl := newTestTable()

	if removed := tbl.DropDuplicates(); removed != 1 {
		t.Errorf("DropDuplicates() = %d, want 1", removed)
	}
	ids, _ := tbl.Column("id")
	want := []Value{IntValue(1), IntValue(2), IntValue(3)}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("first occurrences not kept (-want +got):\n%s", diff)
	}
}

func TestTable_DropDuplicatesDistinguishesKinds(t *testing.T) {
	tbl := NewTable([]string{"v"})
	tbl.AppendRow([]Value{IntValue(1)})
	tbl.AppendRow([]Value{StringValue("1")})
	tbl.AppendRow([]Value{Null()})
	tbl.AppendRow([]Value{StringValue("")})

	if removed := tbl.DropDuplicates(); removed != 0 {
		t.Errorf("DropDuplicates() = %d, want 0", removed)
	}
}

func TestTable_DropDuplicatesSubSecondTimes(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tbl := NewTable([]string{"ts"})
	tbl.AppendRow([]Value{TimeValue(base.Add(123 * time.Millisecond))})
	tbl.AppendRow([]Value{TimeValue(base.Add(456 * time.Millisecond))})
	tbl.AppendRow([]Value{TimeValue(base.Add(456 * time.Millisecond))})
	tbl.AppendRow([]Value{TimeValue(base.Add(456*time.Millisecond + time.Nanosecond))})

	if removed := tbl.DropDuplicates(); removed != 1 {
		t.Errorf("DropDuplicates() = %d, want 1", removed)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

func TestTable_DropMissing(t *testing.T) {
	tbl := newTestTable()

	if removed := tbl.DropMissing("city", "not_there"); removed != 1 {
		t.Errorf("DropMissing(city) = %d, want 1", removed)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
	if removed := tbl.DropMissing("not_there"); removed != 0 {
		t.Errorf("DropMissing(not_there) = %d, want 0", removed)
	}
}

func TestTable_FillNull(t *testing.T) {
	tbl := newTestTable()

	if filled := tbl.FillNull("city", StringValue("DELHI")); filled != 1 {
		t.Errorf("FillNull() = %d, want 1", filled)
	}
	cities, _ := tbl.Column("city")
	if cities[1].Str() != "DELHI" {
		t.Errorf("city[1] = %v, want DELHI", cities[1])
	}

	if filled := tbl.FillNull("amount", Null()); filled != 0 {
		t.Errorf("FillNull with null = %d, want 0", filled)
	}
}

func TestTable_NullCounts(t *testing.T) {
	tbl := newTestTable()

	want := []ColumnNulls{
		{Column: "id", Count: 0},
		{Column: "city", Count: 1},
		{Column: "amount", Count: 1},
	}
	if diff := cmp.Diff(want, tbl.NullCounts()); diff != "" {
		t.Errorf("NullCounts() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_AddColumnAndRename(t *testing.T) {
	tbl := newTestTable()

	idx := tbl.AddColumn("Order Status")
	if idx != 3 || !tbl.Rows[0][3].IsNull() {
		t.Errorf("AddColumn() = %d, row 0 = %v", idx, tbl.Rows[0])
	}

	tbl.RenameColumns(NormalizeHeader)
	if !tbl.HasColumn("Order_Status") {
		t.Errorf("columns after rename = %v", tbl.Columns)
	}
}
