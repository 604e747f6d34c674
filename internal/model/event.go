package model

import (
	"time"

	"github.com/google/uuid"
)

// UploadCompleted is published to Kafka each time a cropped file has been
// stored successfully. The marketplace backend consumes it to attach the
// resulting URL to a listing, shop profile, or avatar.
type UploadCompleted struct {
	TaskID    uuid.UUID `json:"task_id"`
	Target    string    `json:"target"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// RecropRequest asks the service to re-run the crop pipeline against an
// original image that is already in object storage, e.g. when a merchant
// adjusts the framing of an existing shop banner.
type RecropRequest struct {
	ID        uuid.UUID  `json:"id"`
	Key       string     `json:"key"`
	Filename  string     `json:"filename"`
	Target    string     `json:"target"`
	Container Dimensions `json:"container"`
	Gesture   Gesture    `json:"gesture"`
}
