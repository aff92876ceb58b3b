package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// table is one parsed CSV file: a header-derived column index over the
// data rows. Lookups go through column names so file column order never
// matters.
type table struct {
	path string
	cols map[string]int
	rows [][]string
}

// readTable parses a CSV file with a header row. A file that does not
// exist reports ErrMissingFile so callers can treat optional files as
// absent rather than broken.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, filepath.Base(path))
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}

	t := &table{path: path, cols: make(map[string]int, len(records[0]))}
	for i, col := range records[0] {
		t.cols[strings.TrimSpace(col)] = i
	}
	t.rows = records[1:]
	return t, nil
}

// require checks that every named column exists in the header.
func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.cols[c]; !ok {
			return fmt.Errorf("%s: missing column %q", t.path, c)
		}
	}
	return nil
}

// field returns the trimmed cell of a row by column name, or "" when the
// column is absent or the row is short.
func (t *table) field(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) floatField(row []string, col string, rowIdx int) (float64, error) {
	raw := t.field(row, col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, t.rowError(rowIdx, fmt.Errorf("column %q: invalid number %q", col, raw))
	}
	return v, nil
}

// boolField parses a boolean cell. An empty or absent cell is false, so
// optional flag columns can be omitted.
func (t *table) boolField(row []string, col string, rowIdx int) (bool, error) {
	raw := t.field(row, col)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, t.rowError(rowIdx, fmt.Errorf("column %q: invalid boolean %q", col, raw))
	}
	return v, nil
}

// complexField combines a real and an imaginary column into one value.
func (t *table) complexField(row []string, reCol, imCol string, rowIdx int) (complex128, error) {
	re, err := t.floatField(row, reCol, rowIdx)
	if err != nil {
		return 0, err
	}
	im, err := t.floatField(row, imCol, rowIdx)
	if err != nil {
		return 0, err
	}
	return complex(re, im), nil
}

// rowError prefixes an error with the file position of a data row. The
// offset accounts for the header row and 1-based line numbering.
func (t *table) rowError(rowIdx int, err error) error {
	return fmt.Errorf("%s:%d: %w", t.path, rowIdx+2, err)
}
