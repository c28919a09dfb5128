package core

import "fmt"

// Project restricts ds to the named columns, in the given order.
//
// A nil selection keeps every column. Repeated names keep their first
// occurrence. An unknown name returns an error wrapping ErrColumnNotFound
// and leaves ds unchanged. An empty, non-nil selection removes every
// column but keeps the row count.
func Project(ds *Dataset, columns []string) error {
	if columns == nil {
		return nil
	}

	selected := make([]*Column, 0, len(columns))
	seen := make(map[string]bool, len(columns))

	for _, name := range columns {
		if seen[name] {
			continue
		}
		col, ok := ds.Column(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		seen[name] = true
		selected = append(selected, col)
	}

	ds.setColumns(selected)
	return nil
}
