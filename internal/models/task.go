package models

import "time"

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusComplete   TaskStatus = "complete"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed
}

// TaskRecord is the status record persisted as status.json inside a task's
// output directory. It is rewritten atomically on every state transition so
// status queries never have to infer state from which result files happen
// to exist.
type TaskRecord struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Backend   string     `json:"backend,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
