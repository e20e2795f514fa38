package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"pdf-ocr-service/internal/config"
	"pdf-ocr-service/internal/models"
	"pdf-ocr-service/internal/ocr"
	"pdf-ocr-service/internal/services"
	"pdf-ocr-service/internal/store"

	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg      *config.Config
	store    *store.Store
	manager  *services.Manager
	pipeline *services.Pipeline
	backends *ocr.Registry
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, st *store.Store, manager *services.Manager, pipeline *services.Pipeline, backends *ocr.Registry) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    st,
		manager:  manager,
		pipeline: pipeline,
		backends: backends,
	}
}

// Index handles GET / and renders the upload form.
func (h *Handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"defaultBackend": h.cfg.OCR.DefaultBackend,
		"backends":       []string{ocr.BackendTesseract, ocr.BackendVision},
	})
}

// acceptUpload validates the multipart upload and writes it to a temp file.
// All rejections happen here, before any task state is created.
func (h *Handlers) acceptUpload(c *gin.Context) (pdfPath, backend string, ok bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing or invalid file"})
		return "", "", false
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "application/pdf" && contentType != "application/x-pdf" {
		c.JSON(http.StatusUnsupportedMediaType, models.ErrorResponse{Error: "file must be a PDF"})
		return "", "", false
	}
	if h.cfg.Server.MaxUploadBytes > 0 && file.Size > h.cfg.Server.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "upload too large"})
		return "", "", false
	}

	backend = c.PostForm("backend")
	if backend == "" {
		backend = h.cfg.OCR.DefaultBackend
	}
	if !h.backends.Known(backend) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("unknown backend %q", backend)})
		return "", "", false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open upload"})
		return "", "", false
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to store upload"})
		return "", "", false
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to store upload"})
		return "", "", false
	}
	tmp.Close()
	return tmp.Name(), backend, true
}

// Upload handles POST /upload: validate, create the task eagerly (so an
// immediate status poll never sees "not found"), enqueue the background job
// and redirect to the status page.
func (h *Handlers) Upload(c *gin.Context) {
	pdfPath, backend, ok := h.acceptUpload(c)
	if !ok {
		return
	}

	taskID, err := h.store.Create(backend)
	if err != nil {
		os.Remove(pdfPath)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create task"})
		return
	}

	if err := h.manager.Enqueue(services.Job{TaskID: taskID, PDFPath: pdfPath, Backend: backend}); err != nil {
		os.Remove(pdfPath)
		h.store.Remove(taskID)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "server busy, try again later"})
		return
	}

	log.Printf("[API] accepted upload task=%s backend=%s size=%s", taskID, backend, c.GetHeader("Content-Length"))
	c.Redirect(http.StatusSeeOther, "/result/"+taskID)
}

// ResultPage handles GET /result/:taskId and renders the status page.
func (h *Handlers) ResultPage(c *gin.Context) {
	taskID := c.Param("taskId")

	rec, err := h.store.Status(taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			c.HTML(http.StatusNotFound, "result.html", gin.H{"taskID": taskID, "notFound": true})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read task status"})
		return
	}

	switch rec.Status {
	case models.TaskStatusComplete:
		c.HTML(http.StatusOK, "result.html", gin.H{
			"taskID":  taskID,
			"done":    true,
			"txtURL":  fmt.Sprintf("/download/%s/%s", taskID, store.ResultTextFile),
			"jsonURL": fmt.Sprintf("/download/%s/%s", taskID, store.ResultJSONFile),
		})
	case models.TaskStatusFailed:
		c.HTML(http.StatusOK, "result.html", gin.H{
			"taskID": taskID,
			"failed": true,
			"error":  rec.Error,
		})
	default:
		c.HTML(http.StatusAccepted, "result.html", gin.H{
			"taskID":     taskID,
			"processing": true,
		})
	}
}

// TaskStatus handles GET /api/status/:taskId for polling clients.
func (h *Handlers) TaskStatus(c *gin.Context) {
	taskID := c.Param("taskId")

	rec, err := h.store.Status(taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read task status"})
		return
	}

	resp := models.StatusResponse{TaskID: taskID, Status: string(rec.Status)}
	switch rec.Status {
	case models.TaskStatusComplete:
		resp.Text = fmt.Sprintf("/download/%s/%s", taskID, store.ResultTextFile)
		resp.JSON = fmt.Sprintf("/download/%s/%s", taskID, store.ResultJSONFile)
	case models.TaskStatusFailed:
		resp.Error = rec.Error
	}
	c.JSON(http.StatusOK, resp)
}

// Download handles GET /download/:taskId/:filename. Only the two canonical
// artifact names resolve; everything else is a 404.
func (h *Handlers) Download(c *gin.Context) {
	taskID := c.Param("taskId")
	filename := c.Param("filename")

	path, err := h.store.ArtifactPath(taskID, filename)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "file not found"})
		return
	}
	c.FileAttachment(path, filename)
}

// OCRSync handles POST /api/ocr: run the full pipeline inline and return the
// plain text. Nothing is retained; the task directory and the temp upload
// are deleted before responding.
func (h *Handlers) OCRSync(c *gin.Context) {
	pdfPath, backend, ok := h.acceptUpload(c)
	if !ok {
		return
	}
	defer os.Remove(pdfPath)

	taskID, err := h.store.Create(backend)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create task"})
		return
	}
	defer h.store.Remove(taskID)

	if err := h.store.MarkProcessing(taskID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update task"})
		return
	}
	if err := h.pipeline.Process(c.Request.Context(), taskID, pdfPath, backend); err != nil {
		log.Printf("[API] synchronous OCR failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	path, err := h.store.ArtifactPath(taskID, store.ResultTextFile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "result missing after processing"})
		return
	}
	text, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read result"})
		return
	}
	c.JSON(http.StatusOK, models.OCRResponse{Text: string(text)})
}
