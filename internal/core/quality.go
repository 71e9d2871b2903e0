package core

import (
	"fmt"
	"log/slog"
)

// QualityReport is the row/column audit of a cleaned table.
type QualityReport struct {
	Rows         int           `json:"rows"`
	Columns      []string      `json:"columns"`
	Missing      []ColumnNulls `json:"missing,omitempty"`
	TotalMissing int           `json:"total_missing"`
}

// BuildQualityReport counts rows, columns and missing values.
// Missing lists only the columns that have at least one null.
func BuildQualityReport(t *Table) QualityReport {
	r := QualityReport{
		Rows:    t.Len(),
		Columns: append([]string(nil), t.Columns...),
	}
	for _, cn := range t.NullCounts() {
		if cn.Count == 0 {
			continue
		}
		r.Missing = append(r.Missing, cn)
		r.TotalMissing += cn.Count
	}
	return r
}

// Check enforces a maximum number of missing values.
// A negative maxMissing disables the check.
func (r QualityReport) Check(maxMissing int) error {
	if maxMissing < 0 || r.TotalMissing <= maxMissing {
		return nil
	}
	return fmt.Errorf("%w: %d missing values, limit %d", ErrQualityGate, r.TotalMissing, maxMissing)
}

// Log writes the report: info when the table is complete, a warning with the
// per-column counts otherwise.
func (r QualityReport) Log(logger *slog.Logger) {
	logger.Info("quality report",
		"rows", r.Rows,
		"columns", r.Columns,
	)
	if r.TotalMissing == 0 {
		logger.Info("no missing values detected")
		return
	}

	attrs := make([]any, 0, len(r.Missing)+1)
	attrs = append(attrs, slog.Int("total_missing", r.TotalMissing))
	for _, m := range r.Missing {
		attrs = append(attrs, slog.Int(m.Column, m.Count))
	}
	logger.Warn("missing values detected", attrs...)
}
