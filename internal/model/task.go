package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a single upload task.
//
// Transitions are monotonic: pending -> cropping -> uploading -> done|failed.
// A task never regresses to an earlier state.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskCropping  TaskState = "cropping"
	TaskUploading TaskState = "uploading"
	TaskDone      TaskState = "done"
	TaskFailed    TaskState = "failed"
)

// SelectedFile is a user-selected file read fully into memory at staging time.
type SelectedFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadTask tracks one selected file through crop and upload.
type UploadTask struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	State       TaskState `json:"state"`
	ResultURL   string    `json:"result_url,omitempty"`
	StorageKey  string    `json:"storage_key,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Data holds the raw file bytes until the task reaches a terminal state.
	// It is never serialized.
	Data []byte `json:"-"`
}
