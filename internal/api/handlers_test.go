package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"pdf-ocr-service/internal/config"
	"pdf-ocr-service/internal/models"
	"pdf-ocr-service/internal/ocr"
	"pdf-ocr-service/internal/pdf"
	"pdf-ocr-service/internal/services"
	"pdf-ocr-service/internal/store"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type alwaysTextual struct{ text string }

func (a alwaysTextual) IsTextual(ctx context.Context, pdfPath string) (bool, error) {
	return true, nil
}

func (a alwaysTextual) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	return a.text, nil
}

type noRaster struct{}

func (noRaster) Render(ctx context.Context, pdfPath string) ([]pdf.PageImage, error) {
	return nil, nil
}

type testEnv struct {
	router  *gin.Engine
	store   *store.Store
	manager *services.Manager
}

// newTestEnv stands up the full HTTP surface over a temp results root, with
// a stub recognition backend and a pipeline that always takes the text-layer
// path yielding "Hello World".
func newTestEnv(t *testing.T, queueSize, workers int) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{MaxUploadBytes: 1 << 20},
		OCR:    config.OCRConfig{DefaultBackend: "stub"},
	}

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	registry := ocr.NewRegistry(config.OCRConfig{}, config.VisionConfig{})
	registry.Register("stub", func() (ocr.Backend, error) {
		return nil, nil
	})

	fixed := alwaysTextual{text: "Hello World"}
	pipeline := services.NewPipeline(fixed, fixed, noRaster{}, registry, st)
	manager := services.NewManager(pipeline, st, queueSize)
	if workers > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		manager.StartWorkers(ctx, workers)
	}

	h := NewHandlers(cfg, st, manager, pipeline, registry)
	router := SetupRoutes(h, "../../templates/*.html", "../../static")
	return &testEnv{router: router, store: st, manager: manager}
}

func pdfUpload(t *testing.T, contentType, backend string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="doc.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if backend != "" {
		if err := w.WriteField("backend", backend); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func taskDirs(t *testing.T, st *store.Store) int {
	t.Helper()
	entries, err := os.ReadDir(st.Root())
	if err != nil {
		t.Fatalf("read results root: %v", err)
	}
	return len(entries)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	body, ct := pdfUpload(t, "image/png", "")

	rec := env.do(t, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
	if n := taskDirs(t, env.store); n != 0 {
		t.Errorf("rejected upload left %d task dir(s)", n)
	}
}

func TestUploadRejectsUnknownBackend(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	body, ct := pdfUpload(t, "application/pdf", "easyocr")

	rec := env.do(t, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if n := taskDirs(t, env.store); n != 0 {
		t.Errorf("rejected upload left %d task dir(s)", n)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{MaxUploadBytes: 4},
		OCR:    config.OCRConfig{DefaultBackend: "stub"},
	}
	registry := ocr.NewRegistry(config.OCRConfig{}, config.VisionConfig{})
	registry.Register("stub", func() (ocr.Backend, error) { return nil, nil })
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	fixed := alwaysTextual{text: "x"}
	pipeline := services.NewPipeline(fixed, fixed, noRaster{}, registry, st)
	manager := services.NewManager(pipeline, st, 1)
	h := NewHandlers(cfg, st, manager, pipeline, registry)
	router := SetupRoutes(h, "../../templates/*.html", "../../static")

	body, ct := pdfUpload(t, "application/pdf", "")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestUploadToDownloadFlow(t *testing.T) {
	env := newTestEnv(t, 4, 2)
	body, ct := pdfUpload(t, "application/pdf", "stub")

	rec := env.do(t, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d, want 303: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/result/") {
		t.Fatalf("Location = %q", location)
	}
	taskID := strings.TrimPrefix(location, "/result/")

	// An immediate poll must never see "not found".
	poll := env.do(t, http.MethodGet, "/api/status/"+taskID, nil, "")
	if poll.Code == http.StatusNotFound {
		t.Fatal("status poll right after submission returned 404")
	}

	var status models.StatusResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		poll = env.do(t, http.MethodGet, "/api/status/"+taskID, nil, "")
		if err := json.Unmarshal(poll.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Status == string(models.TaskStatusComplete) || status.Status == string(models.TaskStatusFailed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task stuck in status %q", status.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.Status != string(models.TaskStatusComplete) {
		t.Fatalf("task failed: %s", status.Error)
	}

	dl := env.do(t, http.MethodGet, "/download/"+taskID+"/"+store.ResultTextFile, nil, "")
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if got := dl.Body.String(); got != "Hello World" {
		t.Errorf("downloaded text = %q", got)
	}

	jsonDl := env.do(t, http.MethodGet, "/download/"+taskID+"/"+store.ResultJSONFile, nil, "")
	if jsonDl.Code != http.StatusOK || jsonDl.Body.String() != "[]" {
		t.Errorf("result.json download = %d %q", jsonDl.Code, jsonDl.Body.String())
	}

	// Anything but the two canonical artifact names is a 404.
	if rec := env.do(t, http.MethodGet, "/download/"+taskID+"/status.json", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("status.json download = %d, want 404", rec.Code)
	}
}

func TestResultPageUnknownTask(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	rec := env.do(t, http.MethodGet, "/result/no-such-task", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusUnknownTask(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	rec := env.do(t, http.MethodGet, "/api/status/no-such-task", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUploadQueueFull(t *testing.T) {
	// Queue of one, no workers: the first upload fills it, the second is
	// turned away and leaves no task behind.
	env := newTestEnv(t, 1, 0)

	body, ct := pdfUpload(t, "application/pdf", "")
	if rec := env.do(t, http.MethodPost, "/upload", body, ct); rec.Code != http.StatusSeeOther {
		t.Fatalf("first upload status = %d", rec.Code)
	}

	body, ct = pdfUpload(t, "application/pdf", "")
	rec := env.do(t, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second upload status = %d, want 503", rec.Code)
	}
	if n := taskDirs(t, env.store); n != 1 {
		t.Errorf("results root holds %d task dir(s), want 1", n)
	}
}

func TestOCRSyncRetainsNothing(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	body, ct := pdfUpload(t, "application/pdf", "stub")

	rec := env.do(t, http.MethodPost, "/api/ocr", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.OCRResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "Hello World" {
		t.Errorf("text = %q", resp.Text)
	}
	if n := taskDirs(t, env.store); n != 0 {
		t.Errorf("synchronous endpoint left %d task dir(s)", n)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 4, 0)
	rec := env.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
