package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/unimarket/image-uploader/internal/model"
	"github.com/unimarket/image-uploader/internal/queue"
	"github.com/unimarket/image-uploader/internal/validate"
)

// controller is the crop/upload queue state machine.
type controller interface {
	Stage(files []model.SelectedFile, target model.CropTarget) error
	BeginNext() error
	ApplyCrop(container model.Dimensions, g model.Gesture) error
	Cancel()
	Snapshot() queue.Snapshot
}

// cropper runs the crop pipeline for one file.
type cropper interface {
	Crop(data []byte, container model.Dimensions, g model.Gesture, target model.CropTarget) ([]byte, string, error)
}

// fileStorage defines the storage operations needed for re-cropping.
type fileStorage interface {
	Load(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, folder, subfolder, filename, contentType string, data []byte) (string, string, error)
}

// publisher announces finished uploads to the rest of the marketplace.
type publisher interface {
	PublishCompleted(ctx context.Context, ev model.UploadCompleted) error
}

// Service wires validation, the queue controller, and the re-crop path
// behind one API for the HTTP and Kafka surfaces.
type Service struct {
	controller controller
	cropper    cropper
	storage    fileStorage
	producer   publisher
	targets    map[string]model.CropTarget
	valOpts    validate.Options
	folder     string
}

// NewService creates a new Service.
func NewService(
	c controller,
	cr cropper,
	fs fileStorage,
	p publisher,
	targets map[string]model.CropTarget,
	valOpts validate.Options,
	folder string,
) *Service {
	return &Service{
		controller: c,
		cropper:    cr,
		storage:    fs,
		producer:   p,
		targets:    targets,
		valOpts:    valOpts,
		folder:     folder,
	}
}

// Target resolves a crop target by name.
func (s *Service) Target(name string) (model.CropTarget, error) {
	t, ok := s.targets[name]
	if !ok {
		return model.CropTarget{}, fmt.Errorf("unknown crop target: %q", name)
	}
	return t, nil
}

// Stage validates the selection, queues the valid files, and starts crop
// collection for the first of them. Rejected files are reported as
// user-facing warnings and never block the rest of the batch.
func (s *Service) Stage(targetName string, files []model.SelectedFile) (queue.Snapshot, []string, error) {
	target, err := s.Target(targetName)
	if err != nil {
		return queue.Snapshot{}, nil, err
	}

	res := validate.Validate(files, s.valOpts)
	warnings := validate.DisplayMessages(res.Errors)

	if len(res.Valid) == 0 {
		return queue.Snapshot{}, warnings, fmt.Errorf("no valid files in selection")
	}

	if err := s.controller.Stage(res.Valid, target); err != nil {
		return queue.Snapshot{}, warnings, err
	}
	if err := s.controller.BeginNext(); err != nil {
		return queue.Snapshot{}, warnings, err
	}

	return s.controller.Snapshot(), warnings, nil
}

// ApplyCrop forwards the confirmed gesture to the queue controller.
func (s *Service) ApplyCrop(container model.Dimensions, g model.Gesture) (queue.Snapshot, error) {
	if err := s.controller.ApplyCrop(container, g); err != nil {
		return s.controller.Snapshot(), err
	}
	return s.controller.Snapshot(), nil
}

// Snapshot returns the queue's current observable state.
func (s *Service) Snapshot() queue.Snapshot {
	return s.controller.Snapshot()
}

// Cancel clears the queue. Files already uploaded are not retracted.
func (s *Service) Cancel() queue.Snapshot {
	s.controller.Cancel()
	return s.controller.Snapshot()
}

// Recrop re-runs the crop pipeline against an original already in object
// storage and publishes the completion event for the new derivative.
func (s *Service) Recrop(ctx context.Context, req model.RecropRequest) (model.UploadCompleted, error) {
	target, err := s.Target(req.Target)
	if err != nil {
		return model.UploadCompleted{}, err
	}

	rc, err := s.storage.Load(ctx, req.Key)
	if err != nil {
		return model.UploadCompleted{}, fmt.Errorf("load original: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return model.UploadCompleted{}, fmt.Errorf("read original: %w", err)
	}

	out, contentType, err := s.cropper.Crop(data, req.Container, req.Gesture, target)
	if err != nil {
		return model.UploadCompleted{}, err
	}

	url, key, err := s.storage.Upload(ctx, s.folder, target.Name, req.Filename, contentType, out)
	if err != nil {
		return model.UploadCompleted{}, err
	}

	ev := model.UploadCompleted{
		TaskID:    req.ID,
		Target:    target.Name,
		Filename:  req.Filename,
		URL:       url,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}

	if s.producer != nil {
		if err := s.producer.PublishCompleted(ctx, ev); err != nil {
			return ev, fmt.Errorf("publish completion event: %w", err)
		}
	}

	return ev, nil
}
