// Package lightcurve reads the on-disk light-curve formats used by the
// variability models: whitespace-delimited text tables and the compressed
// archive of named arrays that holds the flare templates.
package lightcurve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedTable is returned for rows that cannot be parsed or that do
// not match the column count of the first data row.
var ErrMalformedTable = errors.New("malformed light curve table")

// Table holds a tabulated light curve column-wise. Column 0 is time or
// phase; the remaining columns are per-band values.
type Table struct {
	cols [][]float64
}

// ReadTable parses whitespace-delimited numeric rows from r. Text after a
// '#' is a comment; blank lines are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cols [][]float64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if cols == nil {
			cols = make([][]float64, len(fields))
		}
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrMalformedTable, lineNo, len(fields), len(cols))
		}

		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %q", ErrMalformedTable, lineNo, i, f)
			}
			cols[i] = append(cols[i], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading light curve table: %w", err)
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedTable)
	}

	return &Table{cols: cols}, nil
}

// LoadTable reads a table from a file on disk.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening light curve %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// NumColumns returns the number of columns per row.
func (t *Table) NumColumns() int {
	return len(t.cols)
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// Column returns a copy of column i.
func (t *Table) Column(i int) []float64 {
	out := make([]float64, len(t.cols[i]))
	copy(out, t.cols[i])
	return out
}
