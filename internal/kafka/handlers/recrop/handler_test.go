package recrop

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/image-uploader/internal/model"
)

type fakeService struct {
	got model.RecropRequest
	err error
}

func (f *fakeService) Recrop(_ context.Context, req model.RecropRequest) (model.UploadCompleted, error) {
	f.got = req
	return model.UploadCompleted{TaskID: req.ID}, f.err
}

func TestHandler_Handle(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc)

	req := model.RecropRequest{
		ID:       uuid.New(),
		Key:      "uploads/listing/a.jpg",
		Filename: "a.jpg",
		Target:   "avatar",
		Gesture:  model.Gesture{X: 10, Y: -5, Scale: 2},
	}
	value, err := json.Marshal(req)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), kafka.Message{Value: value}))
	assert.Equal(t, req, svc.got)
}

func TestHandler_HandleBadPayload(t *testing.T) {
	h := NewHandler(&fakeService{})

	err := h.Handle(context.Background(), kafka.Message{Value: []byte("not json")})
	require.Error(t, err)
}

func TestHandler_HandleServiceError(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("boom")}
	h := NewHandler(svc)

	value, err := json.Marshal(model.RecropRequest{Key: "k", Target: "listing"})
	require.NoError(t, err)

	err = h.Handle(context.Background(), kafka.Message{Value: value})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
