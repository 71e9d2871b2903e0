package core

// convert.go turns raw staging-file cells into typed values.
//
// Reading follows the conventions of common dataframe CSV readers so a file
// written by the extract step round-trips with the same column types:
//   - A fixed set of NA markers ("", "NA", "NaN", "null", ...) are missing
//   - A column is int if every present cell is an integer, float if every
//     present cell is numeric, bool if every present cell is True/False,
//     and string otherwise
//
// Coercions used by cleaning operations never fail: unparseable input
// becomes a missing value.

import (
	"strconv"
	"strings"
	"time"
)

// naMarkers are cell contents treated as missing when reading a CSV.
var naMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1-2-06", "01-02-06", "1/2/06", "01/02/06", "1.2.06", "01.02.06",
	}
)

// IsMissing reports whether a raw cell is one of the NA markers. Cells are
// matched as written: " " and " NA " are strings, not missing.
func IsMissing(raw string) bool {
	_, ok := naMarkers[raw]
	return ok
}

// ParseDate parses s using the supported layouts.
// Returns false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	// 4-digit year layouts are unambiguous, try them first
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseNumber parses s as an int or a float.
// Returns a null Value when s is not numeric.
func ParseNumber(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatValue(f)
	}
	return Null()
}

// parseBool accepts the spellings dataframe writers emit for booleans.
func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	default:
		return false, false
	}
}

// InferColumn converts the raw cells of one column into typed values,
// choosing a single kind for all present cells.
func InferColumn(raw []string) []Value {
	out := make([]Value, len(raw))

	allInt, allFloat, allBool := true, true, true
	present := 0
	for _, cell := range raw {
		if IsMissing(cell) {
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(cell); !ok {
				allBool = false
			}
		}
	}

	for i, cell := range raw {
		if IsMissing(cell) {
			out[i] = Null()
			continue
		}
		switch {
		case present > 0 && allInt:
			n, _ := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			out[i] = IntValue(n)
		case present > 0 && allFloat:
			f, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			out[i] = FloatValue(f)
		case present > 0 && allBool:
			b, _ := parseBool(cell)
			out[i] = BoolValue(b)
		default:
			out[i] = StringValue(cell)
		}
	}

	return out
}

// CoerceDatetime converts a value to a datetime, or null when it cannot.
func CoerceDatetime(v Value) Value {
	switch v.Kind() {
	case KindTime, KindNull:
		return v
	case KindString:
		if t, ok := ParseDate(v.Str()); ok {
			return TimeValue(t)
		}
		return Null()
	case KindInt:
		// Bare integers like 20220430 are compact dates
		if t, ok := ParseDate(v.String()); ok {
			return TimeValue(t)
		}
		return Null()
	default:
		return Null()
	}
}

// CoerceNumeric converts a value to a number, or null when it cannot.
func CoerceNumeric(v Value) Value {
	switch v.Kind() {
	case KindInt, KindFloat, KindNull:
		return v
	case KindBool:
		if v.Bool() {
			return IntValue(1)
		}
		return IntValue(0)
	case KindString:
		return ParseNumber(v.Str())
	default:
		return Null()
	}
}
