package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadCSV parses a staging CSV into a typed table.
// The first record is the header; short rows are padded with nulls and long
// rows truncated. Column types are inferred with InferColumn.
func ReadCSV(r io.Reader) (*Table, error) {
	t, _, err := readCSV(r)
	return t, err
}

func readCSV(r io.Reader) (*Table, int64, error) {
	wrapped, counter := wrapStagingReader(r)
	cr := csv.NewReader(wrapped)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, counter.BytesRead, ErrEmptyFile
	}
	if err != nil {
		return nil, counter.BytesRead, fmt.Errorf("invalid csv header: %w", err)
	}
	for i := range header {
		header[i] = sanitizeField(header[i])
	}

	width := len(header)
	raw := make([][]string, width)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, counter.BytesRead, fmt.Errorf("invalid csv at record %d: %w", rows+2, err)
		}
		for c := 0; c < width; c++ {
			cell := ""
			if c < len(rec) {
				cell = sanitizeField(rec[c])
			}
			raw[c] = append(raw[c], cell)
		}
		rows++
	}

	t := NewTable(header)
	t.Rows = make([][]Value, rows)
	for r := range t.Rows {
		t.Rows[r] = make([]Value, width)
	}
	for c := 0; c < width; c++ {
		for r, v := range InferColumn(raw[c]) {
			t.Rows[r][c] = v
		}
	}
	return t, counter.BytesRead, nil
}

// WriteCSV writes t as CSV: header first, nulls as empty cells.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSVFile reads a staging file from disk and returns the table along
// with the file size in bytes. A missing file is reported as
// ErrStagingFileMissing.
func ReadCSVFile(path string) (*Table, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: %s", ErrStagingFileMissing, path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, n, err := readCSV(f)
	if err != nil {
		return nil, n, fmt.Errorf("read %s: %w", path, err)
	}
	return t, n, nil
}

// WriteCSVFile writes t to path atomically: the data goes to a temporary file
// in the same directory which is then renamed over path.
func WriteCSVFile(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after successful rename

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename staging file: %w", err)
	}
	return nil
}
