package engine

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/roach88/tabula/internal/value"
)

// readCSV loads a CSV file as a table with a header row. Empty cells are
// Nil, cells that parse as numbers are Num and the rest are Str. Header
// cells are always Str.
func readCSV(path string) (*value.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	rows := make([][]value.Entry, len(records))
	for i, rec := range records {
		row := make([]value.Entry, len(rec))
		for j, cell := range rec {
			if i == 0 {
				row[j] = value.StrEntry(cell)
			} else {
				row[j] = parseCell(cell)
			}
		}
		rows[i] = row
	}
	return value.NewTable(true, rows)
}

func parseCell(s string) value.Entry {
	if s == "" {
		return value.NilEntry()
	}
	// NaN and infinities stay text: they have no canonical encoding.
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return value.NumEntry(n)
	}
	return value.StrEntry(s)
}
