package core

import (
	"fmt"
	"path/filepath"
)

// Load decodes a tabular file into a Dataset. The format is chosen from
// the extension of name; unknown extensions return an
// *UnsupportedFormatError.
func Load(name string, data []byte) (*Dataset, error) {
	def, err := formatForName(name)
	if err != nil {
		return nil, err
	}

	ds, err := def.Read(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(name), err)
	}
	return ds, nil
}
