package queue

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/unimarket/image-uploader/internal/model"
)

// State is the lifecycle state of the whole queue.
type State string

const (
	StateIdle            State = "idle"
	StateStaged          State = "staged"
	StateActive          State = "active"
	StateCompleted       State = "completed"
	StatePartiallyFailed State = "partially_failed"
)

// EventKind identifies what a queue event describes.
type EventKind string

const (
	// EventStaged fires when a batch of files has been queued.
	EventStaged EventKind = "staged"
	// EventCropRequested fires when a task enters cropping and the UI
	// should collect a gesture for its preview.
	EventCropRequested EventKind = "crop_requested"
	// EventTaskUploading fires when a cropped file starts uploading.
	EventTaskUploading EventKind = "task_uploading"
	// EventTaskDone fires when a task's upload succeeded.
	EventTaskDone EventKind = "task_done"
	// EventTaskFailed fires when a task failed to crop or upload.
	EventTaskFailed EventKind = "task_failed"
	// EventQueueCompleted fires when every staged task reached done.
	EventQueueCompleted EventKind = "queue_completed"
	// EventQueueFailed fires when an upload failure abandoned the rest
	// of the queue.
	EventQueueFailed EventKind = "queue_failed"
	// EventCancelled fires when the queue was cleared by the user.
	EventCancelled EventKind = "cancelled"
)

// Event is emitted by the controller after each state-machine step. The UI
// reads events and snapshots; it never mutates controller state.
type Event struct {
	Kind     EventKind `json:"kind"`
	TaskID   uuid.UUID `json:"task_id,omitempty"`
	Filename string    `json:"filename,omitempty"`
	URL      string    `json:"url,omitempty"`
	Error    string    `json:"error,omitempty"`
	State    State     `json:"state"`
}

// Snapshot is a deep copy of the queue's observable state. Task file
// bytes are never included.
type Snapshot struct {
	State        State              `json:"state"`
	Target       string             `json:"target,omitempty"`
	CurrentIndex int                `json:"current_index"`
	Tasks        []model.UploadTask `json:"tasks"`
}

// transition validates and performs a monotonic task state change. The
// caller supplies the expected prior state so that races become errors
// instead of silent regressions.
func transition(t *model.UploadTask, from, to model.TaskState) error {
	if t.State != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", t.Filename, from, t.State)
	}
	if !allowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", t.Filename, from, to)
	}
	t.State = to
	return nil
}

func allowedTransition(from, to model.TaskState) bool {
	switch from {
	case model.TaskPending:
		return to == model.TaskCropping
	case model.TaskCropping:
		return to == model.TaskUploading || to == model.TaskFailed
	case model.TaskUploading:
		return to == model.TaskDone || to == model.TaskFailed
	default:
		return false
	}
}
