package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

func init() {
	RegisterFormat(FormatDefinition{
		Format:      FormatXLSX,
		Label:       "Excel",
		Extension:   ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Aliases:     []string{"excel", "xls", "spreadsheet"},
		Read:        readXLSX,
		Write:       writeXLSX,
	})
}

// readXLSX reads the first sheet of a workbook. Numbers are taken raw so a
// display format such as "#,##0.00" does not leak into the data; date and
// boolean cells are rendered as text (see xlsxCells).
//
// Blank rows above the header are skipped. Blank rows between data rows
// load as all-missing rows, and the sheet's declared dimension extends the
// data past trailing blank rows, so a dataset ending in missing rows
// survives an export and reload. Ragged rows are padded.
func readXLSX(data []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]

	all, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidWorkbook, sheet, err)
	}

	// GetRows pads interior empty rows, so index i is sheet row i+1.
	first := 0
	for first < len(all) && isBlankRow(all[first]) {
		first++
	}
	last := len(all)
	for last > first && isBlankRow(all[last-1]) {
		last--
	}
	if first == last {
		return nil, ErrEmptyFile
	}

	cells := newXLSXCells(f, sheet)
	for i := first; i < last; i++ {
		for j, v := range all[i] {
			if v != "" {
				all[i][j] = cells.text(j+1, i+1, v)
			}
		}
	}

	header, body := all[first], all[first+1:last]
	if extra := declaredLastRow(f, sheet) - last; extra > 0 {
		body = append(body, make([][]string, extra)...)
	}

	// Cells to the right of the header still form columns.
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	if width > len(header) {
		padded := make([]string, width)
		copy(padded, header)
		header = padded
	}

	return buildDataset(header, body)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// declaredLastRow returns the last row of the sheet's used range, or 0 when
// the workbook declares none.
func declaredLastRow(f *excelize.File, sheet string) int {
	ref, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0
	}
	_, end, ok := strings.Cut(ref, ":")
	if !ok {
		return 0
	}
	_, row, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return 0
	}
	return row
}

// xlsxCells turns raw cell values into the text a spreadsheet user sees for
// booleans and dates. Other cells keep their raw value.
type xlsxCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	isDate   map[int]bool // style index -> date or time number format
}

func newXLSXCells(f *excelize.File, sheet string) *xlsxCells {
	c := &xlsxCells{f: f, sheet: sheet, isDate: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *xlsxCells) text(col, row int, raw string) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := c.f.GetCellType(c.sheet, name)
	if err != nil {
		return raw
	}

	switch typ {
	case excelize.CellTypeBool:
		switch raw {
		case "1":
			return "TRUE"
		case "0":
			return "FALSE"
		}
		return raw
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return formatCellTime(t)
			}
		}
		return raw
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		style, err := c.f.GetCellStyle(c.sheet, name)
		if err != nil || !c.dateStyle(style) {
			return raw
		}
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		t, err := excelize.ExcelDateToTime(serial, c.date1904)
		if err != nil {
			return raw
		}
		if serial < 1 {
			return t.Format("15:04:05")
		}
		return formatCellTime(t)
	default:
		return raw
	}
}

func (c *xlsxCells) dateStyle(idx int) bool {
	if idx == 0 {
		return false
	}
	if v, ok := c.isDate[idx]; ok {
		return v
	}
	v := false
	if st, err := c.f.GetStyle(idx); err == nil && st != nil {
		if st.CustomNumFmt != nil {
			v = isDateFormatCode(*st.CustomNumFmt)
		} else {
			v = isBuiltinDateFormat(st.NumFmt)
		}
	}
	c.isDate[idx] = v
	return v
}

// Built-in number formats 14-22 and 45-47 are dates and times; 27-36 and
// 50-58 are the locale specific date formats.
func isBuiltinDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) ||
		(id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

// isDateFormatCode reports whether a custom format code renders a date or
// time. Quoted literals, escaped characters and bracketed sections such as
// [Red] or [$-409] are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case bracket:
			bracket = ch != ']'
		case ch == '"':
			quoted = true
		case ch == '[':
			bracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

// formatCellTime drops the clock when a timestamp falls on midnight.
func formatCellTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// writeXLSX writes a single sheet with a bold header row. Numeric cells are
// stored as numbers and missing cells are left empty. The sheet dimension
// covers every data row, including trailing all-missing ones.
func writeXLSX(ds *Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for j, col := range ds.Columns() {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(xlsxSheet, cell, col.Name); err != nil {
			return nil, fmt.Errorf("write header %q: %w", col.Name, err)
		}
		if err := f.SetCellStyle(xlsxSheet, cell, cell, style); err != nil {
			return nil, fmt.Errorf("style header %q: %w", col.Name, err)
		}

		for i, c := range col.Cells {
			if c.Missing {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if col.Type == TypeNumeric {
				err = f.SetCellFloat(xlsxSheet, cell, c.Num, -1, 64)
			} else {
				err = f.SetCellStr(xlsxSheet, cell, c.Text)
			}
			if err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	lastCol := max(len(ds.Columns()), 1)
	end, err := excelize.CoordinatesToCellName(lastCol, ds.RowCount()+1)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetDimension(xlsxSheet, "A1:"+end); err != nil {
		return nil, fmt.Errorf("set dimension: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
