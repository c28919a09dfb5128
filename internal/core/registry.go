package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Format identifies a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ReadFunc decodes file bytes into a Dataset.
type ReadFunc func(data []byte) (*Dataset, error)

// WriteFunc encodes a Dataset into file bytes.
type WriteFunc func(ds *Dataset) ([]byte, error)

// FormatDefinition describes everything needed to read and write a format.
type FormatDefinition struct {
	Format      Format
	Label       string   // Shown in the UI, e.g. "Excel"
	Extension   string   // Lowercase, with the dot
	ContentType string   // MIME type of written files
	Aliases     []string // Extra names accepted by ParseFormat
	Read        ReadFunc
	Write       WriteFunc
}

var (
	formats   = make(map[Format]FormatDefinition)
	formatsMu sync.RWMutex
)

// RegisterFormat adds a format definition to the registry.
// Panics if the format or its extension is already registered.
func RegisterFormat(def FormatDefinition) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if _, exists := formats[def.Format]; exists {
		panic(fmt.Sprintf("format already registered: %s", def.Format))
	}
	def.Extension = strings.ToLower(def.Extension)
	for _, other := range formats {
		if other.Extension == def.Extension {
			panic(fmt.Sprintf("extension already registered: %s", def.Extension))
		}
	}

	formats[def.Format] = def
}

// LookupFormat returns a format definition.
func LookupFormat(f Format) (FormatDefinition, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	def, ok := formats[f]
	return def, ok
}

// Formats returns all registered formats sorted by name.
func Formats() []FormatDefinition {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	result := make([]FormatDefinition, 0, len(formats))
	for _, def := range formats {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Format < result[j].Format
	})

	return result
}

// DetectFormat picks the format from the file extension, case-insensitively.
func DetectFormat(name string) (Format, error) {
	def, err := formatForName(name)
	if err != nil {
		return "", err
	}
	return def.Format, nil
}

func formatForName(name string) (FormatDefinition, error) {
	ext := strings.ToLower(filepath.Ext(name))

	formatsMu.RLock()
	defer formatsMu.RUnlock()

	if ext != "" {
		for _, def := range formats {
			if def.Extension == ext {
				return def, nil
			}
		}
	}
	return FormatDefinition{}, &UnsupportedFormatError{Ext: ext}
}

// ParseFormat maps a user-facing format choice to a Format.
// Matching is case-insensitive against the format name, label, extension
// and aliases. The empty string selects csv.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatCSV, nil
	}

	formatsMu.RLock()
	defer formatsMu.RUnlock()

	for _, def := range formats {
		if s == string(def.Format) || s == strings.ToLower(def.Label) || s == def.Extension {
			return def.Format, nil
		}
		for _, alias := range def.Aliases {
			if s == strings.ToLower(alias) {
				return def.Format, nil
			}
		}
	}
	return "", fmt.Errorf("%w %q: %w", ErrUnsupportedOutput, s, ErrUnsupportedFormat)
}

// FormatCount returns the number of registered formats.
func FormatCount() int {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	return len(formats)
}
