package core

import (
	"fmt"
	"strconv"
)

// ColumnType is the inferred type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumeric
)

func (t ColumnType) String() string {
	if t == TypeNumeric {
		return "numeric"
	}
	return "text"
}

// Cell is a single value in a column.
// For numeric columns Num is authoritative, for text columns Text is.
type Cell struct {
	Text    string
	Num     float64
	Missing bool
}

// NumberCell returns a present numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Num: v}
}

// TextCell returns a present text cell.
func TextCell(s string) Cell {
	return Cell{Text: s}
}

// MissingCell returns an absent value.
func MissingCell() Cell {
	return Cell{Missing: true}
}

// Format renders the cell as it appears in exported csv.
// Missing cells render as the empty string.
func (c Cell) Format(t ColumnType) string {
	if c.Missing {
		return ""
	}
	if t == TypeNumeric {
		return FormatNumber(c.Num)
	}
	return c.Text
}

// FormatNumber formats v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Type  ColumnType
	Cells []Cell
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Missing {
			n++
		}
	}
	return n
}

// Dataset is an in-memory table: ordered uniquely named columns that all
// hold exactly RowCount cells.
type Dataset struct {
	columns []*Column
	rows    int
}

// NewDataset creates an empty dataset with the given row count.
func NewDataset(rows int) *Dataset {
	return &Dataset{rows: rows}
}

// AddColumn appends a column.
// Returns an error if the name is taken or the length does not match.
func (d *Dataset) AddColumn(c *Column) error {
	if len(c.Cells) != d.rows {
		return fmt.Errorf("column %q has %d cells, dataset has %d rows", c.Name, len(c.Cells), d.rows)
	}
	if _, exists := d.Column(c.Name); exists {
		return fmt.Errorf("duplicate column name %q", c.Name)
	}
	d.columns = append(d.columns, c)
	return nil
}

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// Column returns the column with the given name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	return d.rows
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

// NumericColumns returns the numeric columns in order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.columns {
		if c.Type == TypeNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the cells of row i across all columns.
func (d *Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Cells[i]
	}
	return row
}

// Records returns the data rows formatted as strings, header excluded.
func (d *Dataset) Records() [][]string {
	out := make([][]string, d.rows)
	for i := 0; i < d.rows; i++ {
		rec := make([]string, len(d.columns))
		for j, c := range d.columns {
			rec[j] = c.Cells[i].Format(c.Type)
		}
		out[i] = rec
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{rows: d.rows, columns: make([]*Column, len(d.columns))}
	for i, c := range d.columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.columns[i] = &Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	return out
}

// keepRows retains only the rows at the given ascending indexes.
func (d *Dataset) keepRows(keep []int) {
	for _, c := range d.columns {
		cells := make([]Cell, len(keep))
		for i, idx := range keep {
			cells[i] = c.Cells[idx]
		}
		c.Cells = cells
	}
	d.rows = len(keep)
}

// setColumns replaces the column list, keeping the row count.
func (d *Dataset) setColumns(cols []*Column) {
	d.columns = cols
}
