package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/sweeper/internal/logging"
)

// DefaultPreviewRows is the number of rows shown before cleaning.
const DefaultPreviewRows = 5

// Options are the per-file pipeline choices.
type Options struct {
	Clean     CleanOptions
	Columns   []string // nil keeps every column
	ShowChart bool
	Convert   bool
	Format    Format // Output format; empty means csv
}

// FileJob is one file to run through the pipeline.
type FileJob struct {
	Name    string
	Data    []byte
	Options Options
}

// FileResult is the outcome of one file. When Err is set the fields after
// the failing stage are empty.
type FileResult struct {
	Name    string
	Size    int
	Format  Format
	Preview *Preview
	// AllColumns lists the columns available for selection, after cleaning
	// and before projection.
	AllColumns []string
	Dataset    *Dataset
	Report     CleanReport
	Chart      *ChartData
	Export     *ExportResult
	Err        error
	Elapsed    time.Duration
}

// OK reports whether the file was processed without error.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// RunSummary counts the outcome of a run.
type RunSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Summarize counts successful and failed files.
func Summarize(results []FileResult) RunSummary {
	var s RunSummary
	for _, r := range results {
		if r.OK() {
			s.Processed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ServiceConfig configures a Service. Zero values select defaults.
type ServiceConfig struct {
	PreviewRows   int
	MaxConcurrent int
	MaxWait       time.Duration
	WorkspaceTTL  time.Duration
	MaxWorkspaces int
	Chart         ChartOptions
	Observer      Observer
}

// Service runs the sweeper pipeline and owns the upload workspaces.
type Service struct {
	previewRows int
	chart       ChartOptions
	limiter     *RunLimiter
	workspaces  *WorkspaceStore
	observer    Observer
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}

	return &Service{
		previewRows: cfg.PreviewRows,
		chart:       cfg.Chart,
		limiter:     NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		workspaces:  NewWorkspaceStore(cfg.WorkspaceTTL, cfg.MaxWorkspaces),
		observer:    cfg.Observer,
	}
}

// Workspaces returns the workspace store.
func (s *Service) Workspaces() *WorkspaceStore {
	return s.workspaces
}

// Limiter returns the run limiter.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// ListFormats returns the registered formats.
func (s *Service) ListFormats() []FormatDefinition {
	return Formats()
}

// RenderChart renders data with the service's chart settings.
func (s *Service) RenderChart(data ChartData, title string) ([]byte, error) {
	opts := s.chart
	opts.Title = title
	return RenderChart(data, opts)
}

// Run processes jobs in order. A failing file is recorded in its result and
// the loop continues with the next file. The returned error is only set when
// the run could not start at all.
func (s *Service) Run(ctx context.Context, jobs []FileJob) ([]FileResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := logging.FromContext(ctx)
	if ip := ClientIPFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}
	start := time.Now()

	results := make([]FileResult, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = FileResult{Name: job.Name, Size: len(job.Data), Err: err}
			continue
		}
		results[i] = s.processFile(ctx, job)
	}

	summary := Summarize(results)
	logger.Info("run completed",
		"files", len(jobs),
		"processed", summary.Processed,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// processFile runs the pipeline for a single file.
func (s *Service) processFile(ctx context.Context, job FileJob) (result FileResult) {
	logger := logging.WithFields(ctx, "file", job.Name)
	start := time.Now()
	result = FileResult{Name: job.Name, Size: len(job.Data)}

	defer func() {
		result.Elapsed = time.Since(start)
		outcome := OutcomeSuccess
		if result.Err != nil {
			outcome = OutcomeFailed
			logger.Warn("file failed", "error", result.Err)
		}
		s.observer.FileProcessed(result.Format, outcome, result.Elapsed)
	}()

	format, err := DetectFormat(job.Name)
	if err != nil {
		result.Err = err
		return result
	}
	result.Format = format

	ds, err := Load(job.Name, job.Data)
	if err != nil {
		result.Err = err
		return result
	}
	s.observer.RowsLoaded(format, ds.RowCount())
	logger.Debug("file loaded", "rows", ds.RowCount(), "columns", ds.ColumnCount())

	preview := BuildPreview(ds, s.previewRows)
	result.Preview = &preview

	result.Report = Clean(ds, job.Options.Clean)
	if result.Report.Applied {
		s.observer.Cleaned(result.Report)
		logger.Debug("file cleaned",
			"duplicates_removed", result.Report.DuplicatesRemoved,
			"cells_filled", result.Report.Fill.CellsFilled(),
			"skipped_columns", len(result.Report.Fill.Skipped),
		)
	}
	result.AllColumns = ds.ColumnNames()

	if err := Project(ds, job.Options.Columns); err != nil {
		result.Err = err
		return result
	}
	result.Dataset = ds

	if job.Options.ShowChart {
		chart := BuildChart(ds)
		result.Chart = &chart
	}

	if job.Options.Convert {
		out := job.Options.Format
		if out == "" {
			out = FormatCSV
		}
		exp, err := Export(ds, out, job.Name)
		if err != nil {
			result.Err = fmt.Errorf("convert %s: %w", job.Name, err)
			return result
		}
		result.Export = exp
		s.observer.Exported(out, len(exp.Data))
		logger.Info("file converted", "format", out, "bytes", len(exp.Data))
	}

	return result
}
