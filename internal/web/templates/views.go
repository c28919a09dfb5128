// Package templates holds the templ components for the web UI.
//
// Edit the .templ files and run `templ generate`; the *_templ.go files are
// generated and committed. View models and small helpers live here.
package templates

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/core"
)

//go:generate templ generate

// IndexView is the data for the upload page.
type IndexView struct {
	MaxFiles   int
	MaxTotalMB int64
	Formats    []core.FormatDefinition
}

func (v IndexView) accept() string {
	exts := make([]string, len(v.Formats))
	for i, f := range v.Formats {
		exts[i] = f.Extension
	}
	return strings.Join(exts, ",")
}

func (v IndexView) supported() string {
	labels := make([]string, len(v.Formats))
	for i, f := range v.Formats {
		labels[i] = fmt.Sprintf("%s (%s)", f.Label, f.Extension)
	}
	return strings.Join(labels, ", ")
}

// OptionsView is the state of one file's options form.
type OptionsView struct {
	Clean  bool
	Dedupe bool
	Fill   bool
	Chart  bool
	Format string
	// Columns is the selection; nil selects every column.
	Columns []string
}

func (o OptionsView) isSelected(col string) bool {
	if o.Columns == nil {
		return true
	}
	for _, c := range o.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FileView is one processed file.
type FileView struct {
	WorkspaceID string
	FileID      string
	Name        string
	Size        int
	Err         *core.UserMessage

	Preview    *core.Preview // head before cleaning
	Result     *core.Preview // head after cleaning and projection
	Report     core.CleanReport
	AllColumns []string
	Options    OptionsView
	Formats    []core.FormatDefinition

	// Query carries the options into the chart and download links.
	Query string
}

func (f FileView) base() string {
	return fmt.Sprintf("/w/%s/files/%s", f.WorkspaceID, f.FileID)
}

func (f FileView) chartURL() string {
	return f.base() + "/chart.png?" + f.Query
}

func (f FileView) downloadURL() string {
	return f.base() + "/download?" + f.Query
}

// WorkspaceView is every file of a workspace.
type WorkspaceView struct {
	ID      string
	Files   []FileView
	Summary core.RunSummary
}

func formatLabel(defs []core.FormatDefinition, f string) string {
	for _, d := range defs {
		if string(d.Format) == f {
			return d.Label
		}
	}
	return f
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
