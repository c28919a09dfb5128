package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/metrics"
)

const peopleCSV = "name,age\nAlice,30\nBob,\nAlice,30\n"

type upload struct {
	name    string
	content string
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *core.Service) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	for _, m := range mutate {
		m(cfg)
	}

	svc := core.NewService(core.ServiceConfig{
		PreviewRows:   cfg.Upload.PreviewRows,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		WorkspaceTTL:  cfg.Workspace.TTL,
		MaxWorkspaces: cfg.Workspace.Max,
		Chart:         core.ChartOptions{Width: 200, Height: 120},
	})
	m := metrics.New()
	m.TrackService(svc)
	return NewServer(cfg, svc, m), svc
}

func multipartBody(t *testing.T, files []upload, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postFiles(t *testing.T, s *Server, path string, files []upload, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return serve(s, req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func createWorkspace(t *testing.T, svc *core.Service, files ...core.UploadedFile) core.Workspace {
	t.Helper()
	ws, err := svc.Workspaces().Create(files)
	require.NoError(t, err)
	return ws
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Runs.MaxConcurrent)
	assert.Equal(t, 0, resp.Workspaces)
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `name="files"`)
	assert.Contains(t, body, `accept=".csv,.xlsx"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestSecurityHeaders_CSPDisabled(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.Security.EnableCSP = false })

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStatic(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".card")
}

func TestUpload_RedirectsToWorkspace(t *testing.T) {
	s, svc := newTestServer(t)

	rec := postFiles(t, s, "/upload", []upload{
		{"data.csv", peopleCSV},
		{"notes.txt", "hello"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/w/"), loc)
	assert.Equal(t, 1, svc.Workspaces().Len())

	page := serve(s, httptest.NewRequest(http.MethodGet, loc, nil))
	require.Equal(t, http.StatusOK, page.Code)

	body := page.Body.String()
	assert.Contains(t, body, "Loaded data.csv")
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, core.MissingDisplay)
	assert.Contains(t, body, "Code: FILE006")
	assert.Contains(t, body, "1 processed, 1 failed")
}

func TestUpload_HTMXRedirect(t *testing.T) {
	s, _ := newTestServer(t)

	body, ct := multipartBody(t, []upload{{"data.csv", peopleCSV}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("HX-Request", "true")

	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("HX-Redirect"), "/w/"))
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		files    []upload
		wantCode int
		wantErr  string
	}{
		{"no files", nil, nil, http.StatusBadRequest, "FILE004"},
		{"too many files", func(c *config.Config) { c.Upload.MaxFiles = 1 }, []upload{{"a.csv", "a\n1\n"}, {"b.csv", "b\n2\n"}}, http.StatusBadRequest, "FILE007"},
		{"body too large", func(c *config.Config) { c.Upload.MaxTotalSize = 64 }, []upload{{"a.csv", strings.Repeat("x", 512)}}, http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mutate []func(*config.Config)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}
			s, _ := newTestServer(t, mutate...)

			body, ct := multipartBody(t, tt.files, nil)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Accept", "application/json")

			rec := serve(s, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestUpload_HTMLError(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code: FILE004")
}

func TestWorkspace_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/w/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "WS001")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/w/missing/files/x/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFile_AppliesOptions(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})
	f := ws.Files[0]

	rec := serve(s, httptest.NewRequest(http.MethodGet,
		"/w/"+ws.ID+"/files/"+f.ID+"?clean=true&dedupe=true&fill=true&chart=true&format=excel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Duplicates removed: 1")
	assert.Contains(t, body, "Filled 1 missing value(s) in age with 30")
	assert.Contains(t, body, "chart.png?")
	assert.Contains(t, body, "Download as Excel")
	assert.Contains(t, body, "Back to workspace")
}

func TestFile_HTMXPartial(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})

	req := httptest.NewRequest(http.MethodGet, "/w/"+ws.ID+"/files/"+ws.Files[0].ID, nil)
	req.Header.Set("HX-Request", "true")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), `id="file-`+ws.Files[0].ID+`"`)
}

func TestFile_UnknownColumnShowsError(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/w/"+ws.ID+"/files/"+ws.Files[0].ID+"?columns=nope", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Code: VAL005")
}

func TestFile_InvalidOption(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})

	req := httptest.NewRequest(http.MethodGet, "/w/"+ws.ID+"/files/"+ws.Files[0].ID+"?format=pdf", nil)
	req.Header.Set("Accept", "application/json")

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL007", decodeError(t, rec).Code)
}

func TestFileDownload(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "reports/data.csv", Data: []byte(peopleCSV)})
	base := "/w/" + ws.ID + "/files/" + ws.Files[0].ID + "/download"

	t.Run("csv", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?clean=true&dedupe=true&fill=true", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=data.csv`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "name,age\nAlice,30\nBob,30\n", rec.Body.String())
	})

	t.Run("xlsx with projection", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?format=xlsx&columns=age&columns=name", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "data.xlsx")

		ds, err := core.Load("out.xlsx", rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{"age", "name"}, ds.ColumnNames())
		assert.Equal(t, 3, ds.RowCount())
	})

	t.Run("failing file", func(t *testing.T) {
		bad := createWorkspace(t, svc, core.UploadedFile{Name: "bad.csv", Data: []byte("a\n1,2\n")})
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/w/"+bad.ID+"/files/"+bad.Files[0].ID+"/download", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "FILE002")
	})
}

func TestFileDownload_ColumnNamesVerbatim(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{
		Name: "names.csv",
		Data: []byte("\"last, first\", age\nDoe,40\n"),
	})
	base := "/w/" + ws.ID + "/files/" + ws.Files[0].ID + "/download"

	q := url.Values{}
	q.Set("columns_set", "1")
	q.Add("columns", " age")
	q.Add("columns", "last, first")

	rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "\" age\",\"last, first\"\n40,Doe\n", rec.Body.String())
}

func TestFileChart(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "m.csv", Data: []byte("a,b\n1,2\n3,4\n")})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/w/"+ws.ID+"/files/"+ws.Files[0].ID+"/chart.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestAPIFormats(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []formatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, core.FormatCSV, got[0].Format)
	assert.Equal(t, ".xlsx", got[1].Extension)
}

func TestAPIPreview(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFiles(t, s, "/api/preview", []upload{
		{"data.csv", peopleCSV},
		{"notes.txt", "hello"},
	}, map[string][]string{"clean": {"true"}, "dedupe": {"true"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.RunSummary{Processed: 1, Failed: 1}, resp.Summary)
	require.Len(t, resp.Files, 2)

	first := resp.Files[0]
	assert.Equal(t, core.FormatCSV, first.Format)
	assert.Equal(t, 3, first.Preview.TotalRows)
	assert.Equal(t, 2, first.Result.TotalRows)
	assert.Equal(t, []string{"name", "age"}, first.Columns)
	require.NotNil(t, first.Report)
	assert.Equal(t, 1, first.Report.DuplicatesRemoved)
	assert.Nil(t, first.Error)

	require.NotNil(t, resp.Files[1].Error)
	assert.Equal(t, "FILE006", resp.Files[1].Error.Code)
}

func TestAPIConvert(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFiles(t, s, "/api/convert", []upload{{"data.csv", peopleCSV}},
		map[string][]string{"columns": {"name"}, "clean": {"on"}, "dedupe": {"on"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name\nAlice\nBob\n", rec.Body.String())

	rec = postFiles(t, s, "/api/convert", []upload{{"a.csv", "a\n1\n"}, {"b.csv", "b\n1\n"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE007", decodeError(t, rec).Code)
}

func TestAPIChart(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFiles(t, s, "/api/chart", []upload{{"m.csv", "a\n1\n2\n"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestWorkspace_RunsBusy(t *testing.T) {
	s, svc := newTestServer(t, func(c *config.Config) {
		c.Upload.MaxConcurrent = 1
		c.Upload.MaxWaitTime = 10 * time.Millisecond
	})
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})

	require.True(t, svc.Limiter().TryAcquire())
	defer svc.Limiter().Release()

	req := httptest.NewRequest(http.MethodGet, "/w/"+ws.ID, nil)
	req.Header.Set("Accept", "application/json")

	rec := serve(s, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "RUN001", decodeError(t, rec).Code)
}

func TestWorkspace_CancelledRequest(t *testing.T) {
	s, svc := newTestServer(t)
	ws := createWorkspace(t, svc, core.UploadedFile{Name: "data.csv", Data: []byte(peopleCSV)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/w/"+ws.ID, nil).WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	rec := serve(s, req)
	assert.Equal(t, "RUN002", decodeError(t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
		c.Rate.Burst = 1
	})

	first := serve(s, httptest.NewRequest(http.MethodGet, "/api/formats", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := serve(s, httptest.NewRequest(http.MethodGet, "/api/formats", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, second).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sweeper_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
