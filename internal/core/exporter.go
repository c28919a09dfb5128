package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ExportResult is a converted file ready for download.
type ExportResult struct {
	Format      Format
	Data        []byte
	FileName    string
	ContentType string
}

// Export encodes ds in the given format. The file name is the base name of
// originalName with its extension replaced.
func Export(ds *Dataset, f Format, originalName string) (*ExportResult, error) {
	def, ok := LookupFormat(f)
	if !ok {
		return nil, fmt.Errorf("%w %q: %w", ErrUnsupportedOutput, f, ErrUnsupportedFormat)
	}

	data, err := def.Write(ds)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", f, err)
	}

	return &ExportResult{
		Format:      f,
		Data:        data,
		FileName:    ExportFileName(originalName, def.Extension),
		ContentType: def.ContentType,
	}, nil
}

// ExportFileName strips directories and the last extension from name and
// appends ext.
func ExportFileName(name, ext string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "export"
	}
	return base + ext
}
