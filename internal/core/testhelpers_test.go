package core

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// mustLoadCSV loads csv text or fails the test.
func mustLoadCSV(t *testing.T, text string) *Dataset {
	t.Helper()
	ds, err := Load("test.csv", []byte(text))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return ds
}

// buildWorkbook writes rows into Sheet1 of a new workbook. Cells are set
// with SetCellValue so numbers stay numeric.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

// columnStrings returns the csv rendering of one column.
func columnStrings(t *testing.T, ds *Dataset, name string) []string {
	t.Helper()
	col, ok := ds.Column(name)
	if !ok {
		t.Fatalf("column %q not found in %q", name, ds.ColumnNames())
	}
	out := make([]string, len(col.Cells))
	for i, c := range col.Cells {
		out[i] = c.Format(col.Type)
	}
	return out
}
