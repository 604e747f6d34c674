package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/image-uploader/internal/model"
	"github.com/unimarket/image-uploader/internal/queue"
	"github.com/unimarket/image-uploader/internal/validate"
)

type fakeController struct {
	staged  []model.SelectedFile
	target  model.CropTarget
	began   bool
	cropped bool
}

func (f *fakeController) Stage(files []model.SelectedFile, target model.CropTarget) error {
	f.staged = files
	f.target = target
	return nil
}

func (f *fakeController) BeginNext() error {
	f.began = true
	return nil
}

func (f *fakeController) ApplyCrop(model.Dimensions, model.Gesture) error {
	f.cropped = true
	return nil
}

func (f *fakeController) Cancel() {}

func (f *fakeController) Snapshot() queue.Snapshot {
	return queue.Snapshot{State: queue.StateStaged, Target: f.target.Name}
}

type fakeCropper struct {
	out []byte
	err error
}

func (f *fakeCropper) Crop([]byte, model.Dimensions, model.Gesture, model.CropTarget) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.out, "image/jpeg", nil
}

type fakeStorage struct {
	objects  map[string][]byte
	uploaded map[string][]byte
	loadErr  error
}

func (f *fakeStorage) Load(_ context.Context, key string) (io.ReadCloser, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Upload(_ context.Context, folder, subfolder, filename, _ string, data []byte) (string, string, error) {
	key := folder + "/" + subfolder + "/" + filename
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}
	f.uploaded[key] = data
	return "https://cdn.example.com/" + key, key, nil
}

type fakePublisher struct {
	events []model.UploadCompleted
}

func (f *fakePublisher) PublishCompleted(_ context.Context, ev model.UploadCompleted) error {
	f.events = append(f.events, ev)
	return nil
}

func testTargets() map[string]model.CropTarget {
	return map[string]model.CropTarget{
		"listing": {Name: "listing", OutputWidth: 1200, OutputHeight: 1200, Fit: model.FitContain},
		"avatar":  {Name: "avatar", OutputWidth: 240, OutputHeight: 240, Fit: model.FitCover, Circular: true},
	}
}

func testOptions() validate.Options {
	return validate.Options{
		MaxSizeMB:         10,
		AcceptedMimeTypes: []string{"image/jpeg", "image/png"},
		MaxCount:          10,
	}
}

func newTestService(ctrl *fakeController, cr *fakeCropper, fs *fakeStorage, pub *fakePublisher) *Service {
	return NewService(ctrl, cr, fs, pub, testTargets(), testOptions(), "uploads")
}

func TestService_StageFiltersInvalidFiles(t *testing.T) {
	ctrl := &fakeController{}
	svc := newTestService(ctrl, &fakeCropper{}, &fakeStorage{}, nil)

	files := []model.SelectedFile{
		{Name: "ok.jpg", ContentType: "image/jpeg", Size: 1024},
		{Name: "too-big.jpg", ContentType: "image/jpeg", Size: 11 * 1024 * 1024},
	}

	snap, warnings, err := svc.Stage("listing", files)
	require.NoError(t, err)

	assert.Equal(t, queue.StateStaged, snap.State)
	require.Len(t, ctrl.staged, 1)
	assert.Equal(t, "ok.jpg", ctrl.staged[0].Name)
	assert.True(t, ctrl.began)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "too-big.jpg")
}

func TestService_StageUnknownTarget(t *testing.T) {
	svc := newTestService(&fakeController{}, &fakeCropper{}, &fakeStorage{}, nil)

	_, _, err := svc.Stage("poster", []model.SelectedFile{{Name: "a.jpg", ContentType: "image/jpeg"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poster")
}

func TestService_StageAllFilesInvalid(t *testing.T) {
	ctrl := &fakeController{}
	svc := newTestService(ctrl, &fakeCropper{}, &fakeStorage{}, nil)

	_, warnings, err := svc.Stage("listing", []model.SelectedFile{
		{Name: "clip.mp4", ContentType: "video/mp4", Size: 1024},
	})

	require.Error(t, err)
	assert.NotEmpty(t, warnings)
	assert.Empty(t, ctrl.staged)
}

func TestService_RecropLoadsCropsAndPublishes(t *testing.T) {
	fs := &fakeStorage{objects: map[string][]byte{"uploads/listing/orig.jpg": []byte("original-bytes")}}
	pub := &fakePublisher{}
	svc := newTestService(&fakeController{}, &fakeCropper{out: []byte("cropped-bytes")}, fs, pub)

	req := model.RecropRequest{
		ID:        uuid.New(),
		Key:       "uploads/listing/orig.jpg",
		Filename:  "orig.jpg",
		Target:    "avatar",
		Container: model.Dimensions{Width: 500, Height: 500},
		Gesture:   model.Gesture{Scale: 1.5},
	}

	ev, err := svc.Recrop(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.ID, ev.TaskID)
	assert.Equal(t, "avatar", ev.Target)
	assert.Equal(t, "uploads/avatar/orig.jpg", ev.Key)

	// The derivative was uploaded and the completion event published.
	assert.Equal(t, []byte("cropped-bytes"), fs.uploaded["uploads/avatar/orig.jpg"])
	require.Len(t, pub.events, 1)
	assert.Equal(t, ev, pub.events[0])
}

func TestService_RecropUnknownKey(t *testing.T) {
	svc := newTestService(&fakeController{}, &fakeCropper{}, &fakeStorage{objects: map[string][]byte{}}, nil)

	_, err := svc.Recrop(context.Background(), model.RecropRequest{Key: "missing", Target: "listing"})
	require.Error(t, err)
}

func TestService_RecropCropFailure(t *testing.T) {
	fs := &fakeStorage{objects: map[string][]byte{"k": []byte("data")}}
	svc := newTestService(&fakeController{}, &fakeCropper{err: fmt.Errorf("image decode failed")}, fs, nil)

	_, err := svc.Recrop(context.Background(), model.RecropRequest{Key: "k", Target: "listing"})
	require.Error(t, err)
	assert.Empty(t, fs.uploaded)
}
