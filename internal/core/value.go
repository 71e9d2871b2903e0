package core

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// StringValue wraps s. Use Null for missing cells; the empty string is kept as-is.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f. NaN and infinities are treated as missing.
func FloatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// TimeValue wraps t, normalised to UTC.
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Str() string { return v.s }
func (v Value) Int() int64 { return v.i }
func (v Value) Bool() bool { return v.b }
func (v Value) Time() time.Time { return v.t }
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) Equal(o Value) bool { return v.kind == o.kind && v.Key() == o.Key() }

// Float returns the numeric value as float64. Ints are widened.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// String renders the value the way it is written to a staging CSV.
// Null renders as the empty cell.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindTime:
		return formatTime(v.t)
	default:
		return ""
	}
}

// Key returns a kind-qualified representation used for equality and
// duplicate detection.
func (v Value) Key() string {
	if v.kind == KindTime {
		return v.kind.String() + ":" + v.t.UTC().Format(time.RFC3339Nano)
	}
	return v.kind.String() + ":" + v.String()
}

// Interface returns the native Go value, or nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Compare orders two values. Values of different kinds order by kind.
// Returns -1, 0 or 1.
func Compare(a, b Value) int {
	if a.IsNumeric() && b.IsNumeric() {
		return cmp.Compare(a.Float(), b.Float())
	}
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindTime:
		return a.t.Compare(b.t)
	default:
		return 0
	}
}

// formatFloat keeps a decimal point on integral floats so the column
// re-infers as float when the staging file is read back.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05.999999999")
}
