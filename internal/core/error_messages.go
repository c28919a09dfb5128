package core

// User-facing error catalog. Every failure shown to a user carries a short
// code so a report can be traced back to the log line that has the full
// error and request id.
//
//	FILE001 upload too large          FILE005 empty file
//	FILE002 invalid csv               FILE006 unsupported file type
//	FILE003 invalid workbook          FILE007 too many files
//	FILE004 no file selected
//	VAL005  column not found          VAL006  unsupported output format
//	VAL007  invalid option
//	WS001   workspace expired         WS002   file not in workspace
//	WS003   too many workspaces
//	RUN001  too many runs             RUN002  cancelled
//	RUN003  deadline exceeded
//	RATE001 rate limited
//	ERR000  anything else

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is what a user sees for a failed request or file.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

var catalog = map[string]UserMessage{
	"FILE001": {"File exceeds the maximum upload size", "Split the file into smaller files", ""},
	"FILE002": {"File is not a valid CSV", "Ensure the file is comma-separated and no row has more fields than the header", ""},
	"FILE003": {"File is not a readable Excel workbook", "Save the file as .xlsx and upload it again", ""},
	"FILE004": {"No file was selected", "Please select a CSV or Excel file to upload", ""},
	"FILE005": {"The uploaded file is empty", "Please upload a file with a header row", ""},
	"FILE006": {"Unsupported file type", "Upload a .csv or .xlsx file", ""},
	"FILE007": {"Too many files in one upload", "Upload fewer files at a time", ""},
	"VAL005":  {"A selected column does not exist in this file", "Pick columns from the list shown for this file", ""},
	"VAL006":  {"The selected output format is not supported", "Choose CSV or Excel", ""},
	"VAL007":  {"One of the selected options is invalid", "Check the options and try again", ""},
	"WS001":   {"This upload has expired", "Upload your files again", ""},
	"WS002":   {"File not found", "Return to the upload page and select the file again", ""},
	"WS003":   {"The server is holding too many uploads", "Please try again in a few minutes", ""},
	"RUN001":  {"System is busy processing other files", "Please wait a moment and try again", ""},
	"RUN002":  {"Request was cancelled", "Please try again", ""},
	"RUN003":  {"Request timed out", "Try a smaller file or fewer files at once", ""},
	"RATE001": {"Too many requests", "Please wait a moment before trying again", ""},
	"ERR000":  {"An unexpected error occurred", "Please try again or contact support", ""},
}

// Sentinels are matched with errors.Is, in order. ErrUnsupportedOutput
// wraps ErrUnsupportedFormat, so it comes first.
var sentinelCodes = []struct {
	target error
	code   string
}{
	{ErrInvalidCSV, "FILE002"},
	{ErrInvalidWorkbook, "FILE003"},
	{ErrEmptyFile, "FILE005"},
	{ErrUnsupportedOutput, "VAL006"},
	{ErrUnsupportedFormat, "FILE006"},
	{ErrColumnNotFound, "VAL005"},
	{ErrWorkspaceNotFound, "WS001"},
	{ErrFileNotFound, "WS002"},
	{ErrTooManyWorkspaces, "WS003"},
	{ErrTooManyRuns, "RUN001"},
	{context.Canceled, "RUN002"},
	{context.DeadlineExceeded, "RUN003"},
}

// Errors raised outside this package (net/http, the web layer) are matched
// by lowercase substring.
var textCodes = []struct {
	text string
	code string
}{
	{"request body too large", "FILE001"},
	{"file too large", "FILE001"},
	{"no file provided", "FILE004"},
	{"too many files", "FILE007"},
	{"invalid option", "VAL007"},
	{"rate limit", "RATE001"},
	{"invalid csv", "FILE002"},
}

func messageFor(code string) UserMessage {
	m := catalog[code]
	m.Code = code
	return m
}

// MapError returns the user message for err, falling back to ERR000. A nil
// error maps to the zero UserMessage.
//
//	MapError(fmt.Errorf("load a.csv: %w", ErrInvalidCSV)).Code // "FILE002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.target) {
			return messageFor(s.code)
		}
	}
	text := strings.ToLower(err.Error())
	for _, t := range textCodes {
		if strings.Contains(text, t.text) {
			return messageFor(t.code)
		}
	}
	return messageFor("ERR000")
}

// FormatUserError renders err as "Message (Code: X). Action", or "" for nil.
func FormatUserError(err error) string {
	m := MapError(err)
	if m.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", m.Message, m.Code, m.Action)
}

// IsUserFacing reports whether err has a specific catalog entry.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != "ERR000"
}
