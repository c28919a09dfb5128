package core

// convert.go turns raw cell strings into typed columns.
//
// The rules follow what spreadsheet users expect from dataframe tools:
//   - Empty cells and the usual NA spellings are missing values
//   - A column is numeric when every present cell parses as a float
//   - Blank header cells get a placeholder name, repeated names a suffix

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// naTokens are the cell values treated as missing.
var naTokens = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"<NA>":     {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"1.#IND":   {},
	"1.#QNAN":  {},
}

// IsMissing reports whether a raw cell value is a missing value.
func IsMissing(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// ParseNumber parses a raw cell as a float.
// Surrounding whitespace is ignored; NaN is never returned.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// InferColumn builds a typed column from raw strings.
func InferColumn(name string, raw []string) *Column {
	numeric := true
	for _, s := range raw {
		if IsMissing(s) {
			continue
		}
		if _, ok := ParseNumber(s); !ok {
			numeric = false
			break
		}
	}

	col := &Column{Name: name, Cells: make([]Cell, len(raw))}
	if numeric {
		col.Type = TypeNumeric
	}

	for i, s := range raw {
		switch {
		case IsMissing(s):
			col.Cells[i] = MissingCell()
		case numeric:
			v, _ := ParseNumber(s)
			col.Cells[i] = NumberCell(v)
		default:
			col.Cells[i] = TextCell(s)
		}
	}
	return col
}

// HeaderNames makes raw header cells usable as unique column names.
// Blank cells become "Unnamed: i"; a repeated name x becomes x.1, x.2, ...
func HeaderNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))

	for i, h := range raw {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if used[name] {
			base := name
			for used[name] {
				counts[base]++
				name = fmt.Sprintf("%s.%d", base, counts[base])
			}
		}

		used[name] = true
		names[i] = name
	}
	return names
}

// buildDataset converts a header plus raw data rows into a Dataset.
// Rows shorter than the header are padded with missing cells.
func buildDataset(header []string, rows [][]string) (*Dataset, error) {
	names := HeaderNames(header)
	ds := NewDataset(len(rows))

	for j, name := range names {
		raw := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			}
		}
		if err := ds.AddColumn(InferColumn(name, raw)); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
