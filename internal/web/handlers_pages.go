package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.IndexPage(templates.IndexView{
		MaxFiles:   s.cfg.Upload.MaxFiles,
		MaxTotalMB: s.cfg.Upload.MaxTotalSize >> 20,
		Formats:    s.service.ListFormats(),
	}).Render(r.Context(), w)
}

// handleUpload stores the uploaded files in a new workspace and redirects
// to it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ws, err := s.service.Workspaces().Create(files)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("workspace created",
		"workspace_id", ws.ID,
		"files", len(ws.Files),
		"bytes", ws.TotalSize(),
	)

	target := "/w/" + ws.ID
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleWorkspace runs every file in the workspace with the query options
// and renders them in upload order.
func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")

	req, err := parseOptions(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ws, err := s.service.Workspaces().Get(wsID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	opts := req.coreOptions()
	jobs := make([]core.FileJob, len(ws.Files))
	for i, f := range ws.Files {
		jobs[i] = core.FileJob{Name: f.Name, Data: f.Data, Options: opts}
	}

	results, err := s.service.Run(WithRequestMetadata(r.Context(), r), jobs)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	view := templates.WorkspaceView{
		ID:      ws.ID,
		Files:   make([]templates.FileView, len(results)),
		Summary: core.Summarize(results),
	}
	for i, res := range results {
		view.Files[i] = s.fileView(ws.ID, ws.Files[i], res, req)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.WorkspacePage(view).Render(r.Context(), w)
}

// handleFile renders one file with its own options. HTMX requests get
// only the panel.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	req, err := parseOptions(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	f, err := s.storedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.runOne(r, f.Name, f.Data, req.coreOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	view := s.fileView(chi.URLParam(r, "workspaceID"), f, res, req)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.FilePanel(view).Render(r.Context(), w)
		return
	}
	templates.FilePage(view).Render(r.Context(), w)
}

func (s *Server) handleFileChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseOptions(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	f, err := s.storedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	png, err := s.renderChart(r, f.Name, f.Data, req.coreOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeImage(w, "image/png", png)
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	req, err := parseOptions(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	f, err := s.storedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	out, err := s.convert(r, f.Name, f.Data, req.coreOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeExport(w, out)
}

// renderChart runs the pipeline with the chart stage and renders it.
func (s *Server) renderChart(r *http.Request, name string, data []byte, opts core.Options) ([]byte, error) {
	opts.ShowChart = true
	res, err := s.runOne(r, name, data, opts)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Chart == nil {
		return nil, errors.New("chart was not built")
	}
	return s.service.RenderChart(*res.Chart, res.Name)
}

// convert runs the pipeline with the export stage.
func (s *Server) convert(r *http.Request, name string, data []byte, opts core.Options) (*core.ExportResult, error) {
	opts.Convert = true
	res, err := s.runOne(r, name, data, opts)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Export == nil {
		return nil, fmt.Errorf("export of %s produced no output", name)
	}
	return res.Export, nil
}
