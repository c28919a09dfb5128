package core

// cleaner.go implements the two cleaning operations.
//
// Duplicate removal always runs before mean-fill so that duplicated rows do
// not weight the column means.

import (
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// CleanOptions selects which cleaning steps run.
// Nothing runs unless Enabled is set.
type CleanOptions struct {
	Enabled          bool `json:"enabled"`
	RemoveDuplicates bool `json:"remove_duplicates"`
	FillMissing      bool `json:"fill_missing"`
}

// CleanReport summarizes what Clean changed.
type CleanReport struct {
	Applied           bool       `json:"applied"`
	DuplicatesRemoved int        `json:"duplicates_removed"`
	Fill              FillReport `json:"fill"`
}

// ColumnFill records the mean-fill of one column.
type ColumnFill struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Cells  int     `json:"cells"`
}

// FillReport summarizes a mean-fill pass.
// Skipped lists numeric columns with no present values; their mean is
// undefined so they are left unchanged.
type FillReport struct {
	Columns []ColumnFill `json:"columns,omitempty"`
	Skipped []string     `json:"skipped,omitempty"`
}

// CellsFilled returns the total number of cells that were filled.
func (r FillReport) CellsFilled() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Cells
	}
	return n
}

// Clean applies the selected cleaning steps to ds in place.
func Clean(ds *Dataset, opts CleanOptions) CleanReport {
	var report CleanReport
	if !opts.Enabled {
		return report
	}
	report.Applied = true

	if opts.RemoveDuplicates {
		report.DuplicatesRemoved = RemoveDuplicates(ds)
	}
	if opts.FillMissing {
		report.Fill = FillMissingMean(ds)
	}
	return report
}

// RemoveDuplicates drops every row equal to an earlier row across all
// current columns, keeping first occurrences in their original order.
// Returns the number of rows removed.
func RemoveDuplicates(ds *Dataset) int {
	n := ds.RowCount()
	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)

	for i := 0; i < n; i++ {
		key := rowKey(ds, i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := n - len(keep)
	if removed > 0 {
		ds.keepRows(keep)
	}
	return removed
}

// rowKey encodes row i so that equal rows produce equal keys.
// Missing cells compare equal to each other and numeric cells compare by
// value. Text is length-prefixed so separators inside values are harmless.
func rowKey(ds *Dataset, i int) string {
	var b strings.Builder
	for _, col := range ds.Columns() {
		c := col.Cells[i]
		switch {
		case c.Missing:
			b.WriteByte('m')
		case col.Type == TypeNumeric:
			v := c.Num
			if v == 0 {
				v = 0 // -0 and +0 are the same value
			}
			b.WriteByte('n')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		default:
			b.WriteByte('s')
			b.WriteString(strconv.Itoa(len(c.Text)))
			b.WriteByte(':')
			b.WriteString(c.Text)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// FillMissingMean replaces every missing cell of each numeric column with
// the mean of that column's present values. Text columns are untouched.
func FillMissingMean(ds *Dataset) FillReport {
	var report FillReport

	for _, col := range ds.NumericColumns() {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		present := make([]float64, 0, len(col.Cells)-missing)
		for _, c := range col.Cells {
			if !c.Missing {
				present = append(present, c.Num)
			}
		}

		mean, err := stats.Mean(present)
		if err != nil {
			report.Skipped = append(report.Skipped, col.Name)
			continue
		}

		for i := range col.Cells {
			if col.Cells[i].Missing {
				col.Cells[i] = NumberCell(mean)
			}
		}
		report.Columns = append(report.Columns, ColumnFill{Column: col.Name, Mean: mean, Cells: missing})
	}

	return report
}
