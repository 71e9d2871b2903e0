package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// IsMissing Tests
// ----------------------------------------------------------------------------

func TestIsMissing(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"  ", false},
		{" NA ", false},
		{"NA", true},
		{"N/A", true},
		{"NaN", true},
		{"nan", true},
		{"null", true},
		{"NULL", true},
		{"None", true},
		{"<NA>", true},
		{"#N/A", true},
		{"0", false},
		{"none", false},
		{"Shipped", false},
	}

	for _, tt := range tests {
		if got := IsMissing(tt.input); got != tt.want {
			t.Errorf("IsMissing(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   time.Time
	}{
		{"ISO date", "2022-04-30", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"ISO datetime", "2022-04-30 13:45:00", true, time.Date(2022, 4, 30, 13, 45, 0, 0, time.UTC)},
		{"RFC3339", "2022-04-30T13:45:00Z", true, time.Date(2022, 4, 30, 13, 45, 0, 0, time.UTC)},
		{"RFC3339 offset", "2022-04-30T15:45:00+02:00", true, time.Date(2022, 4, 30, 13, 45, 0, 0, time.UTC)},
		{"US slash", "4/30/2022", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"month name", "Apr 30, 2022", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"compact", "20220430", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"two digit dash", "04-30-22", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"surrounding spaces", "  2022-04-30 ", true, time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"empty", "", false, time.Time{}},
		{"text", "yesterday", false, time.Time{}},
		{"invalid day", "2022-02-30", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	// Save original and restore after test
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()

	TwoDigitYearPivot = 20
	pivotYear := time.Now().Year() + 20

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		{"2-digit year 25 as 2025", "01/15/25", 2025},
		{"2-digit year 99 as 1999", "01/15/99", 1999},
		{"dash format", "1-15-99", 1999},
		{"dot format", "01.15.85", 1985},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.input)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q).Year = %d, want %d (pivot year: %d)",
					tt.input, got.Year(), tt.wantYear, pivotYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input    string
		wantKind Kind
		want     float64
	}{
		{"42", KindInt, 42},
		{"-7", KindInt, -7},
		{" 12 ", KindInt, 12},
		{"647.62", KindFloat, 647.62},
		{"1e3", KindFloat, 1000},
		{"", KindNull, 0},
		{"abc", KindNull, 0},
		{"1,000", KindNull, 0},
		{"NaN", KindNull, 0},
	}

	for _, tt := range tests {
		got := ParseNumber(tt.input)
		if got.Kind() != tt.wantKind {
			t.Errorf("ParseNumber(%q).Kind = %v, want %v", tt.input, got.Kind(), tt.wantKind)
			continue
		}
		if got.IsNumeric() && got.Float() != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got.Float(), tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// InferColumn Tests
// ----------------------------------------------------------------------------

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []Value
	}{
		{
			name: "ints with missing",
			raw:  []string{"1", "", "3"},
			want: []Value{IntValue(1), Null(), IntValue(3)},
		},
		{
			name: "ints and floats widen",
			raw:  []string{"1", "2.5"},
			want: []Value{FloatValue(1), FloatValue(2.5)},
		},
		{
			name: "bools",
			raw:  []string{"True", "False", "NA"},
			want: []Value{BoolValue(true), BoolValue(false), Null()},
		},
		{
			name: "mixed falls back to string",
			raw:  []string{"1", "x"},
			want: []Value{StringValue("1"), StringValue("x")},
		},
		{
			name: "bool and number is string",
			raw:  []string{"True", "1"},
			want: []Value{StringValue("True"), StringValue("1")},
		},
		{
			name: "whitespace is a string",
			raw:  []string{" ", "x"},
			want: []Value{StringValue(" "), StringValue("x")},
		},
		{
			name: "padded marker is not missing",
			raw:  []string{" NA ", "1"},
			want: []Value{StringValue(" NA "), StringValue("1")},
		},
		{
			name: "all missing",
			raw:  []string{"", "nan"},
			want: []Value{Null(), Null()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferColumn(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("value %d = %s(%q), want %s(%q)",
						i, got[i].Kind(), got[i], tt.want[i].Kind(), tt.want[i])
				}
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Coercion Tests
// ----------------------------------------------------------------------------

func TestCoerceDatetime(t *testing.T) {
	day := time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input Value
		want  Value
	}{
		{"string date", StringValue("04-30-22"), TimeValue(day)},
		{"compact int", IntValue(20220430), TimeValue(day)},
		{"time unchanged", TimeValue(day), TimeValue(day)},
		{"unparseable", StringValue("soon"), Null()},
		{"float", FloatValue(1.5), Null()},
		{"null", Null(), Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceDatetime(tt.input); !got.Equal(tt.want) {
				t.Errorf("CoerceDatetime(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  Value
	}{
		{"int", IntValue(3), IntValue(3)},
		{"numeric string", StringValue("647.62"), FloatValue(647.62)},
		{"int string", StringValue("2"), IntValue(2)},
		{"bad string", StringValue("n/a amount"), Null()},
		{"true", BoolValue(true), IntValue(1)},
		{"time", TimeValue(time.Now()), Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceNumeric(tt.input); !got.Equal(tt.want) {
				t.Errorf("CoerceNumeric(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Value Tests
// ----------------------------------------------------------------------------

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  string
	}{
		{"null", Null(), ""},
		{"int", IntValue(-3), "-3"},
		{"integral float keeps point", FloatValue(100), "100.0"},
		{"float", FloatValue(647.62), "647.62"},
		{"NaN is null", FloatValue(nanValue()), ""},
		{"true", BoolValue(true), "True"},
		{"date", TimeValue(time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)), "2022-04-30"},
		{"datetime", TimeValue(time.Date(2022, 4, 30, 9, 5, 1, 0, time.UTC)), "2022-04-30 09:05:01"},
		{"datetime millis", TimeValue(time.Date(2024, 5, 1, 10, 0, 0, 123e6, time.UTC)), "2024-05-01 10:00:00.123"},
		{"midnight with millis", TimeValue(time.Date(2024, 5, 1, 0, 0, 0, 5e6, time.UTC)), "2024-05-01 00:00:00.005"},
		{"string", StringValue("B2B"), "B2B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int vs float", IntValue(2), FloatValue(2.5), -1},
		{"equal numerics", IntValue(2), FloatValue(2), 0},
		{"strings", StringValue("b"), StringValue("a"), 1},
		{"bools", BoolValue(false), BoolValue(true), -1},
		{"kinds order", StringValue("z"), IntValue(1), -1},
		{"null first", Null(), StringValue(""), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
