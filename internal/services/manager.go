package services

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"pdf-ocr-service/internal/store"
)

// ErrQueueFull is returned when the bounded job queue cannot accept another
// submission.
var ErrQueueFull = errors.New("job queue is full")

// Job is one submitted PDF waiting for the pipeline. PDFPath points at the
// transient upload copy, deleted once processing finishes either way.
type Job struct {
	TaskID  string
	PDFPath string
	Backend string
}

// Manager owns background execution: a bounded job queue consumed by a fixed
// worker pool. The manager, not the HTTP layer, performs the completion and
// failure transitions on the task store, so a crash inside the pipeline
// always surfaces as a terminal failed status instead of a task stuck in
// processing.
type Manager struct {
	pipeline *Pipeline
	store    *store.Store
	jobs     chan Job
	wg       sync.WaitGroup
}

// NewManager creates a manager with the given queue capacity.
func NewManager(pipeline *Pipeline, st *store.Store, queueSize int) *Manager {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Manager{
		pipeline: pipeline,
		store:    st,
		jobs:     make(chan Job, queueSize),
	}
}

// Enqueue submits a job without blocking the caller. The submitting request
// returns immediately; a full queue is reported so the handler can reject
// the upload instead of hanging.
func (m *Manager) Enqueue(job Job) error {
	select {
	case m.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// StartWorkers launches n workers that drain the job queue until the
// context is cancelled. There is no ordering guarantee between tasks; each
// task's own pipeline runs sequentially inside a single worker.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-m.jobs:
					m.process(ctx, job)
				}
			}
		}()
	}
}

func (m *Manager) process(ctx context.Context, job Job) {
	m.wg.Add(1)
	defer m.wg.Done()
	defer func() {
		// Clean the uploaded temp file whatever happens.
		if err := os.Remove(job.PDFPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[WORKER] task=%s failed to remove temp upload: %v", job.TaskID, err)
		}
	}()

	if err := m.store.MarkProcessing(job.TaskID); err != nil {
		log.Printf("[WORKER] task=%s failed to mark processing: %v", job.TaskID, err)
		return
	}

	if err := m.pipeline.Process(ctx, job.TaskID, job.PDFPath, job.Backend); err != nil {
		log.Printf("[WORKER] task=%s failed: %v", job.TaskID, err)
		if markErr := m.store.MarkFailed(job.TaskID, err); markErr != nil {
			log.Printf("[WORKER] task=%s failed to record failure: %v", job.TaskID, markErr)
		}
		return
	}
	log.Printf("[WORKER] task=%s complete", job.TaskID)
}

// Wait blocks until all in-flight jobs finish. Used during graceful
// shutdown; queued but unstarted jobs are abandoned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
