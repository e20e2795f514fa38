package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pdf-ocr-service/internal/models"
	"pdf-ocr-service/internal/validation"

	"github.com/google/uuid"
)

// Canonical artifact names inside a task directory.
const (
	ResultTextFile = "result.txt"
	ResultJSONFile = "result.json"
	statusFile     = "status.json"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrNoSuchArtifact = errors.New("no such artifact")
)

// Store manages the directory-per-task layout under a results root.
// Each task directory holds status.json plus, once complete, result.txt and
// result.json. The status record is the source of truth for the lifecycle;
// it is rewritten atomically (write to a temp file, then rename) on every
// transition so concurrent status readers never observe a partial write.
type Store struct {
	root string
}

// New creates the results root if needed and returns a store over it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create results root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the results root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) taskDir(id string) string {
	return filepath.Join(s.root, id)
}

// Create allocates a new task id and eagerly creates its directory with a
// pending status record, so a status check racing the submission response
// never sees "not found".
func (s *Store) Create(backend string) (string, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(s.taskDir(id), 0o755); err != nil {
		return "", fmt.Errorf("create task dir: %w", err)
	}
	now := time.Now().UTC()
	rec := &models.TaskRecord{
		ID:        id,
		Status:    models.TaskStatusPending,
		Backend:   backend,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeRecord(rec); err != nil {
		return "", err
	}
	return id, nil
}

// MarkProcessing transitions a task to the processing state.
func (s *Store) MarkProcessing(id string) error {
	return s.transition(id, models.TaskStatusProcessing, "")
}

// MarkFailed transitions a task to the terminal failed state, capturing an
// error summary for status polling.
func (s *Store) MarkFailed(id string, cause error) error {
	summary := ""
	if cause != nil {
		summary = cause.Error()
	}
	return s.transition(id, models.TaskStatusFailed, summary)
}

func (s *Store) transition(id string, status models.TaskStatus, errSummary string) error {
	rec, err := s.readRecord(id)
	if err != nil {
		return err
	}
	rec.Status = status
	rec.Error = errSummary
	rec.UpdatedAt = time.Now().UTC()
	return s.writeRecord(rec)
}

// SaveResults assembles and persists the two result artifacts, then marks
// the task complete. plainText is the blank-line-joined page text; detections
// holds one list per OCR'd page, or nothing at all for the textual path
// (result.json is then an empty sequence). The operation is idempotent:
// re-running it for the same inputs overwrites both files with identical
// content.
func (s *Store) SaveResults(id string, plainText string, detections [][]models.Detection) error {
	if _, err := s.readRecord(id); err != nil {
		return err
	}

	data, err := MarshalDetections(detections)
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}
	if err := validation.ValidateDetections(data); err != nil {
		return fmt.Errorf("validate detections: %w", err)
	}

	dir := s.taskDir(id)
	if err := writeFileAtomic(filepath.Join(dir, ResultTextFile), []byte(plainText)); err != nil {
		return fmt.Errorf("write %s: %w", ResultTextFile, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ResultJSONFile), data); err != nil {
		return fmt.Errorf("write %s: %w", ResultJSONFile, err)
	}
	return s.transition(id, models.TaskStatusComplete, "")
}

// MarshalDetections renders the per-page detection lists as indented JSON.
// Nil slices are normalized to empty arrays so the textual path serializes
// as "[]" and an OCR page with no regions as "[]" rather than null.
func MarshalDetections(detections [][]models.Detection) ([]byte, error) {
	if detections == nil {
		detections = [][]models.Detection{}
	}
	for i, page := range detections {
		if page == nil {
			detections[i] = []models.Detection{}
		}
	}
	return json.MarshalIndent(detections, "", "  ")
}

// Status reports the task lifecycle state. Complete is only reported when
// the record says so and both artifacts are on disk, so a reader racing a
// writer can never treat a partial result as complete.
func (s *Store) Status(id string) (*models.TaskRecord, error) {
	rec, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.TaskStatusComplete && !s.artifactsExist(id) {
		rec.Status = models.TaskStatusProcessing
	}
	return rec, nil
}

func (s *Store) artifactsExist(id string) bool {
	dir := s.taskDir(id)
	for _, name := range []string{ResultTextFile, ResultJSONFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// ArtifactPath resolves a download request to a file on disk. Only the two
// canonical artifact names are ever served.
func (s *Store) ArtifactPath(id, filename string) (string, error) {
	if filename != ResultTextFile && filename != ResultJSONFile {
		return "", ErrNoSuchArtifact
	}
	path := filepath.Join(s.taskDir(id), filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNoSuchArtifact
	}
	return path, nil
}

// Remove deletes a task directory and everything in it. Used by the
// synchronous endpoint, which retains nothing.
func (s *Store) Remove(id string) error {
	return os.RemoveAll(s.taskDir(id))
}

func (s *Store) readRecord(id string) (*models.TaskRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.taskDir(id), statusFile))
	if err != nil {
		if os.IsNotExist(err) {
			// The directory may exist with the record not yet visible if a
			// reader races task creation; report pending rather than unknown.
			if _, dirErr := os.Stat(s.taskDir(id)); dirErr == nil {
				now := time.Now().UTC()
				return &models.TaskRecord{ID: id, Status: models.TaskStatusPending, CreatedAt: now, UpdatedAt: now}, nil
			}
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("read status record: %w", err)
	}
	var rec models.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode status record: %w", err)
	}
	return &rec, nil
}

func (s *Store) writeRecord(rec *models.TaskRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status record: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.taskDir(rec.ID), statusFile), data)
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers see either the old content or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
