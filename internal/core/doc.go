// Package core provides the business logic of the data sweeper.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the sweep CLI and tests without
// modification.
//
// # Architecture
//
// Every uploaded file goes through the same straight-line pipeline:
//
//  1. Load: bytes and a filename become a [Dataset] ([Load]).
//  2. Clean: optional duplicate removal, then optional mean-fill ([Clean]).
//  3. Project: restrict to the selected columns ([Project]).
//  4. Chart: bar chart over the first two numeric columns ([BuildChart]).
//  5. Export: the dataset becomes csv or xlsx bytes ([Export]).
//
// [Service.Run] drives the pipeline over a batch of files. A file that fails
// is reported in its [FileResult] and the remaining files are still
// processed.
//
// # Format Registry
//
// Tabular formats are registered at init time using [RegisterFormat]. Each
// [FormatDefinition] carries the extension, content type and codec:
//
//	core.RegisterFormat(FormatDefinition{
//	    Format:      FormatCSV,
//	    Label:       "CSV",
//	    Extension:   ".csv",
//	    ContentType: "text/csv",
//	    Read:        readCSV,
//	    Write:       writeCSV,
//	})
//
// # Workspaces
//
// Uploaded files are held in memory by a [WorkspaceStore] so that option
// changes can re-run the pipeline against the original bytes. Idle
// workspaces expire after a TTL and are evicted by
// [Service.StartWorkspaceSweeper]. Nothing is persisted.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE007: File errors (size, format, parsing)
//   - VAL005-VAL007: Option errors (unknown columns, bad values)
//   - WS001-WS003: Workspace errors (expired, missing file, capacity)
//   - RUN001-RUN003: Run errors (busy, cancelled, timeout)
//   - RATE001: Rate limited
package core
