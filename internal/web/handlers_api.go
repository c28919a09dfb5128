package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// formatResponse describes one supported format.
type formatResponse struct {
	Format      core.Format `json:"format"`
	Label       string      `json:"label"`
	Extension   string      `json:"extension"`
	ContentType string      `json:"contentType"`
	Aliases     []string    `json:"aliases,omitempty"`
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	defs := s.service.ListFormats()
	out := make([]formatResponse, len(defs))
	for i, d := range defs {
		out[i] = formatResponse{
			Format:      d.Format,
			Label:       d.Label,
			Extension:   d.Extension,
			ContentType: d.ContentType,
			Aliases:     d.Aliases,
		}
	}
	render.JSON(w, r, out)
}

// fileResponse is one file in a preview response.
type fileResponse struct {
	Name      string            `json:"name"`
	Size      int               `json:"size"`
	Format    core.Format       `json:"format,omitempty"`
	Preview   *core.Preview     `json:"preview,omitempty"`
	Columns   []string          `json:"columns,omitempty"`
	Result    *core.Preview     `json:"result,omitempty"`
	Report    *core.CleanReport `json:"report,omitempty"`
	ElapsedMS int64             `json:"elapsedMs"`
	Error     *ErrorResponse    `json:"error,omitempty"`
}

// previewResponse is the body of POST /api/preview.
type previewResponse struct {
	Files   []fileResponse  `json:"files"`
	Summary core.RunSummary `json:"summary"`
}

// handleAPIPreview runs every uploaded file with the request options and
// returns previews before and after processing.
func (s *Server) handleAPIPreview(w http.ResponseWriter, r *http.Request) {
	files, req, ok := s.readAPIRequest(w, r)
	if !ok {
		return
	}

	opts := req.coreOptions()
	jobs := make([]core.FileJob, len(files))
	for i, f := range files {
		jobs[i] = core.FileJob{Name: f.Name, Data: f.Data, Options: opts}
	}

	results, err := s.service.Run(WithRequestMetadata(r.Context(), r), jobs)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := previewResponse{
		Files:   make([]fileResponse, len(results)),
		Summary: core.Summarize(results),
	}
	for i, res := range results {
		fr := fileResponse{
			Name:      res.Name,
			Size:      res.Size,
			Format:    res.Format,
			Preview:   res.Preview,
			Columns:   res.AllColumns,
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		if res.Report.Applied {
			report := res.Report
			fr.Report = &report
		}
		if res.Dataset != nil {
			p := core.BuildPreview(res.Dataset, s.cfg.Upload.PreviewRows)
			fr.Result = &p
		}
		if res.Err != nil {
			e := newErrorResponse(core.MapError(res.Err))
			fr.Error = &e
		}
		resp.Files[i] = fr
	}

	render.JSON(w, r, resp)
}

// handleAPIConvert converts a single uploaded file and returns its bytes.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	f, req, ok := s.readSingleAPIFile(w, r)
	if !ok {
		return
	}

	out, err := s.convert(r, f.Name, f.Data, req.coreOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeExport(w, out)
}

// handleAPIChart renders the bar chart of a single uploaded file.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	f, req, ok := s.readSingleAPIFile(w, r)
	if !ok {
		return
	}

	png, err := s.renderChart(r, f.Name, f.Data, req.coreOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeImage(w, "image/png", png)
}

// readAPIRequest reads the uploaded files and the options sent alongside
// them as form fields or query parameters. On failure the error response
// has been written.
func (s *Server) readAPIRequest(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, optionsRequest, bool) {
	files, err := s.readUploads(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, optionsRequest{}, false
	}

	req, err := parseOptions(r.Form)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, optionsRequest{}, false
	}
	return files, req, true
}

func (s *Server) readSingleAPIFile(w http.ResponseWriter, r *http.Request) (core.UploadedFile, optionsRequest, bool) {
	files, req, ok := s.readAPIRequest(w, r)
	if !ok {
		return core.UploadedFile{}, optionsRequest{}, false
	}
	if len(files) != 1 {
		err := fmt.Errorf("%w: this endpoint accepts one file, got %d", errTooManyFiles, len(files))
		s.respondError(w, r, err, statusFor(err))
		return core.UploadedFile{}, optionsRequest{}, false
	}
	return files[0], req, true
}
