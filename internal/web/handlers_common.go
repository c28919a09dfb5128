package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

// readUploads parses a multipart body and returns the files under the
// "files" (or "file") field. The whole body is capped at the configured
// upload size.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxTotalSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoFile
		}
		return nil, err
	}

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		return nil, errNoFile
	}
	if limit := s.cfg.Upload.MaxFiles; limit > 0 && len(headers) > limit {
		return nil, fmt.Errorf("%w: got %d, limit is %d", errTooManyFiles, len(headers), limit)
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, core.UploadedFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// runOne runs a single file through the pipeline. The returned error is a
// run-level failure; file failures are in the result.
func (s *Server) runOne(r *http.Request, name string, data []byte, opts core.Options) (core.FileResult, error) {
	ctx := WithRequestMetadata(r.Context(), r)
	results, err := s.service.Run(ctx, []core.FileJob{{Name: name, Data: data, Options: opts}})
	if err != nil {
		return core.FileResult{}, err
	}
	return results[0], nil
}

// storedFile loads the file named by the route parameters.
func (s *Server) storedFile(r *http.Request) (core.StoredFile, error) {
	return s.service.Workspaces().File(chi.URLParam(r, "workspaceID"), chi.URLParam(r, "fileID"))
}

// fileView builds the template data for one result.
func (s *Server) fileView(wsID string, f core.StoredFile, res core.FileResult, req optionsRequest) templates.FileView {
	v := templates.FileView{
		WorkspaceID: wsID,
		FileID:      f.ID,
		Name:        f.Name,
		Size:        f.Size(),
		Preview:     res.Preview,
		Report:      res.Report,
		AllColumns:  res.AllColumns,
		Options:     req.view(),
		Formats:     s.service.ListFormats(),
		Query:       req.encode(),
	}
	if v.Options.Format == "" {
		v.Options.Format = string(core.FormatCSV)
	}
	if res.Err != nil {
		msg := core.MapError(res.Err)
		v.Err = &msg
	}
	if res.Dataset != nil {
		p := core.BuildPreview(res.Dataset, s.cfg.Upload.PreviewRows)
		v.Result = &p
	}
	return v
}

// writeExport sends converted bytes as an attachment.
func writeExport(w http.ResponseWriter, out *core.ExportResult) {
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

// writeImage sends a rendered chart.
func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
