package core

// rules.go defines datasets and the cleaning operations applied to them.
//
// A dataset is a named, ordered list of operations. Built-in datasets are
// registered from the datasets package; more can be defined in a YAML rules
// file:
//
//	datasets:
//	  - key: amazon_sales
//	    label: Amazon sales report
//	    staging: amazon
//	    operations:
//	      - op: normalize_headers
//	      - op: to_datetime
//	        columns: [Date]
//	      - op: map_values
//	        columns: [B2B]
//	        mapping: {"True": B2B, "False": B2C}

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OpKind names a cleaning operation.
type OpKind string

const (
	OpNormalizeHeaders OpKind = "normalize_headers"
	OpToDatetime       OpKind = "to_datetime"
	OpToNumeric        OpKind = "to_numeric"
	OpDropColumns      OpKind = "drop_columns"
	OpDropDuplicates   OpKind = "drop_duplicates"
	OpFillMode         OpKind = "fill_mode"
	OpFillMean         OpKind = "fill_mean"
	OpFillValue        OpKind = "fill_value"
	OpDropMissing      OpKind = "drop_missing"
	OpMapValues        OpKind = "map_values"
)

// opsWithColumns lists the operations that act on named columns.
var opsWithColumns = map[OpKind]bool{
	OpToDatetime:  true,
	OpToNumeric:   true,
	OpDropColumns: true,
	OpFillMode:    true,
	OpFillMean:    true,
	OpFillValue:   true,
	OpDropMissing: true,
	OpMapValues:   true,
}

// Operation is one cleaning step. Columns that are absent from the table
// are skipped when the operation runs.
type Operation struct {
	Op      OpKind            `yaml:"op" json:"op"`
	Columns []string          `yaml:"columns,omitempty" json:"columns,omitempty"`
	Value   string            `yaml:"value,omitempty" json:"value,omitempty"`
	Mapping map[string]string `yaml:"mapping,omitempty" json:"mapping,omitempty"`
}

// Validate checks that the operation is well formed.
func (o Operation) Validate() error {
	switch o.Op {
	case OpNormalizeHeaders, OpDropDuplicates:
		return nil
	case OpFillValue:
		if o.Value == "" {
			return fmt.Errorf("%w: %s needs a value", ErrInvalidOperation, o.Op)
		}
	case OpMapValues:
		if len(o.Mapping) == 0 {
			return fmt.Errorf("%w: %s needs a mapping", ErrInvalidOperation, o.Op)
		}
	}
	if !opsWithColumns[o.Op] {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, o.Op)
	}
	if len(o.Columns) == 0 {
		return fmt.Errorf("%w: %s needs at least one column", ErrInvalidOperation, o.Op)
	}
	return nil
}

// DatasetDefinition describes one source collection's cleaning rules.
type DatasetDefinition struct {
	Key        string      `yaml:"key" json:"key"`
	Label      string      `yaml:"label" json:"label"`
	Staging    string      `yaml:"staging" json:"staging"`
	Operations []Operation `yaml:"operations" json:"operations"`
}

// Validate checks the definition and every operation in it.
func (d DatasetDefinition) Validate() error {
	var errs []error
	if d.Key == "" {
		errs = append(errs, errors.New("dataset key is required"))
	}
	if d.Staging == "" {
		errs = append(errs, fmt.Errorf("dataset %q: staging name is required", d.Key))
	}
	for i, op := range d.Operations {
		if err := op.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("dataset %q operation %d: %w", d.Key, i+1, err))
		}
	}
	return errors.Join(errs...)
}

// DateColumns returns the columns converted by to_datetime operations,
// in order of first appearance.
func (d DatasetDefinition) DateColumns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, op := range d.Operations {
		if op.Op != OpToDatetime {
			continue
		}
		for _, c := range op.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// RawFile is the staging file name written by the extract step.
func (d DatasetDefinition) RawFile() string { return d.Staging + ".csv" }

// CleanFile is the staging file name written by the clean step.
func (d DatasetDefinition) CleanFile() string { return d.Staging + "_clean.csv" }

type rulesFile struct {
	Datasets []DatasetDefinition `yaml:"datasets"`
}

// LoadRulesFile reads dataset definitions from a YAML file.
func LoadRulesFile(path string) ([]DatasetDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	var errs []error
	for _, d := range rf.Datasets {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rf.Datasets, nil
}
