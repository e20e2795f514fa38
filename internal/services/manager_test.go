package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-ocr-service/internal/models"
	"pdf-ocr-service/internal/store"
)

func tempUpload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.pdf")
	if err := os.WriteFile(path, []byte("%PDF-fake"), 0o644); err != nil {
		t.Fatalf("write temp upload: %v", err)
	}
	return path
}

func waitForTerminal(t *testing.T, st *store.Store, id string) *models.TaskRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := st.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if rec.Status.Terminal() {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal state")
	return nil
}

func TestManagerCompletesTask(t *testing.T) {
	st := newTestStore(t)
	p := NewPipeline(
		&stubClassifier{textual: true},
		&stubExtractor{text: "Hello World"},
		&stubRasterizer{},
		&stubResolver{backend: &upperBackend{}},
		st,
	)
	m := NewManager(p, st, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartWorkers(ctx, 2)

	upload := tempUpload(t)
	id, _ := st.Create("tesseract")
	if err := m.Enqueue(Job{TaskID: id, PDFPath: upload, Backend: "tesseract"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	rec := waitForTerminal(t, st, id)
	if rec.Status != models.TaskStatusComplete {
		t.Errorf("status = %q, want complete (error: %s)", rec.Status, rec.Error)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Error("temp upload was not cleaned up")
	}
}

func TestManagerMarksFailureTerminal(t *testing.T) {
	st := newTestStore(t)
	p := NewPipeline(
		&stubClassifier{textual: false},
		&stubExtractor{},
		&stubRasterizer{err: errors.New("corrupt file")},
		&stubResolver{backend: &upperBackend{}},
		st,
	)
	m := NewManager(p, st, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartWorkers(ctx, 1)

	upload := tempUpload(t)
	id, _ := st.Create("tesseract")
	if err := m.Enqueue(Job{TaskID: id, PDFPath: upload, Backend: "tesseract"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	rec := waitForTerminal(t, st, id)
	if rec.Status != models.TaskStatusFailed {
		t.Errorf("status = %q, want failed", rec.Status)
	}
	if rec.Error == "" {
		t.Error("failed task carries no error summary")
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Error("temp upload survived a failed task")
	}
}

func TestEnqueueRejectsWhenQueueFull(t *testing.T) {
	st := newTestStore(t)
	p := NewPipeline(&stubClassifier{textual: true}, &stubExtractor{}, &stubRasterizer{}, &stubResolver{}, st)
	m := NewManager(p, st, 1)
	// No workers started: the queue fills and stays full.

	if err := m.Enqueue(Job{TaskID: "a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := m.Enqueue(Job{TaskID: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Enqueue = %v, want ErrQueueFull", err)
	}
}
