package core

// MissingDisplay is how a missing value is shown in previews.
const MissingDisplay = "NaN"

// ColumnSummary describes one column of a preview.
type ColumnSummary struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Missing int    `json:"missing"`
}

// Preview is the head of a dataset for display.
type Preview struct {
	Columns   []ColumnSummary `json:"columns"`
	Rows      [][]string      `json:"rows"`
	TotalRows int             `json:"totalRows"`
}

// BuildPreview returns the first n rows of ds with column summaries.
func BuildPreview(ds *Dataset, n int) Preview {
	if n < 0 || n > ds.RowCount() {
		n = ds.RowCount()
	}

	cols := ds.Columns()
	p := Preview{
		Columns:   make([]ColumnSummary, len(cols)),
		Rows:      make([][]string, n),
		TotalRows: ds.RowCount(),
	}

	for j, c := range cols {
		p.Columns[j] = ColumnSummary{Name: c.Name, Type: c.Type.String(), Missing: c.MissingCount()}
	}

	for i := 0; i < n; i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			if c.Cells[i].Missing {
				row[j] = MissingDisplay
			} else {
				row[j] = c.Cells[i].Format(c.Type)
			}
		}
		p.Rows[i] = row
	}
	return p
}
