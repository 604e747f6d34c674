package recrop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/unimarket/image-uploader/internal/model"
)

// service re-runs the crop pipeline against a stored original.
type service interface {
	Recrop(ctx context.Context, req model.RecropRequest) (model.UploadCompleted, error)
}

// Handler decodes re-crop requests from Kafka messages and hands them to
// the service.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Handle unmarshals a RecropRequest and processes it.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.RecropRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("unmarshal re-crop request: %w", err)
	}

	if _, err := h.service.Recrop(ctx, req); err != nil {
		return fmt.Errorf("re-crop %q: %w", req.Key, err)
	}

	return nil
}
