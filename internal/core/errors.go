package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrUnsupportedOutput = errors.New("unsupported output format")
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidCSV        = errors.New("invalid csv")
	ErrInvalidWorkbook   = errors.New("invalid workbook")
	ErrColumnNotFound    = errors.New("column not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrFileNotFound      = errors.New("file not found in workspace")
	ErrTooManyWorkspaces = errors.New("too many workspaces")
)

// UnsupportedFormatError reports a file whose extension has no registered
// format. It matches ErrUnsupportedFormat with errors.Is.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file type: file has no extension"
	}
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}
