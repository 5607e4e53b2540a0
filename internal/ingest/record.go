// Package ingest converts raw CSV feed exports into domain types.
//
// The exporter is tolerant by design: rows with malformed numeric fields
// are kept (with neutral fallbacks), and only rows missing their identity
// fields are dropped. Dropping a row never aborts a load.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record is a single CSV row with access to fields by column name.
// Column lookup is case-insensitive; missing columns read as empty.
type Record struct {
	columns map[string]int
	values  []string
}

// Has reports whether the column exists and carries a non-blank value.
func (r Record) Has(col string) bool {
	return r.Str(col) != ""
}

// Str returns the trimmed value of a column, or "" when the column is
// absent or the row is too short.
func (r Record) Str(col string) string {
	idx, ok := r.columns[strings.ToLower(col)]
	if !ok || idx >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[idx])
}

// Float returns the column parsed as a float, or fallback when the value
// is blank, unparseable or non-finite. The result is never NaN or Inf.
func (r Record) Float(col string, fallback float64) float64 {
	s := r.Str(col)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// FloatPtr returns the column as a float pointer, or nil when the value
// is blank, unparseable or non-finite. Used for columns whose absence is
// meaningful rather than a zero.
func (r Record) FloatPtr(col string) *float64 {
	s := r.Str(col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// IntPtr returns the column as an integer pointer, or nil when the value
// is blank or unparseable. Scores of unplayed fixtures are exported blank,
// which is distinct from zero.
func (r Record) IntPtr(col string) *int {
	s := r.Str(col)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v := int(f)
		return &v
	}
	return nil
}

// Int returns the column parsed as an integer, or fallback when blank or
// unparseable. Values exported as floats ("2.0") are truncated.
func (r Record) Int(col string, fallback int) int {
	s := r.Str(col)
	if s == "" {
		return fallback
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return fallback
}

// Bool returns the column interpreted as a flag. The exporter writes
// booleans inconsistently (0/1, true/false, yes/no), so all common
// spellings are accepted.
func (r Record) Bool(col string, fallback bool) bool {
	switch strings.ToLower(r.Str(col)) {
	case "1", "true", "t", "yes", "y":
		return true
	case "0", "false", "f", "no", "n", "":
		if r.Str(col) == "" {
			return fallback
		}
		return false
	default:
		return fallback
	}
}

// ReadRecords parses a CSV document into rows keyed by its header line.
// Short rows are allowed (missing cells read as empty) and rows wider than
// the header keep only the named columns. An empty document yields no rows.
func ReadRecords(data []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		// Strip a UTF-8 BOM some exports prepend to the first column.
		name = strings.TrimPrefix(name, "\uFEFF")
		if name == "" {
			continue
		}
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		records = append(records, Record{columns: columns, values: row})
	}

	return records, nil
}
