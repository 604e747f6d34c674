package upload

import (
	"fmt"
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/unimarket/image-uploader/internal/api/respond"
	"github.com/unimarket/image-uploader/internal/model"
	"github.com/unimarket/image-uploader/internal/queue"
)

// maxMultipartMemory caps the in-memory portion of multipart parsing.
const maxMultipartMemory = 32 << 20

// service defines the queue operations exposed over HTTP.
type service interface {
	Stage(targetName string, files []model.SelectedFile) (queue.Snapshot, []string, error)
	ApplyCrop(container model.Dimensions, g model.Gesture) (queue.Snapshot, error)
	Snapshot() queue.Snapshot
	Cancel() queue.Snapshot
}

// Handler provides HTTP handlers for the crop/upload queue.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// CropRequest is the confirmed gesture for the active task, together with
// the preview container dimensions the UI used.
type CropRequest struct {
	Container model.Dimensions `json:"container"`
	Gesture   model.Gesture    `json:"gesture"`
}

// Stage handles the HTTP request for staging a batch of selected files.
// It reads the multipart form, validates the selection, queues the valid
// files in selection order, and responds with the queue snapshot plus any
// validation warnings.
func (h *Handler) Stage(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	target := c.PostForm("target")
	if target == "" {
		zlog.Logger.Warn().Msg("no target provided")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("target field is required"))
		return
	}

	headers := c.Request.MultipartForm.File["images"]
	if len(headers) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	// Read every selected file into memory up front; the queue owns the
	// bytes from here on.
	files := make([]model.SelectedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			zlog.Logger.Err(err).Str("filename", header.Filename).Msg("failed to open uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read file %q", header.Filename))
			return
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			zlog.Logger.Err(err).Str("filename", header.Filename).Msg("failed to read uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read file %q", header.Filename))
			return
		}

		files = append(files, model.SelectedFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        data,
		})
	}

	snap, warnings, err := h.service.Stage(target, files)
	if err != nil {
		zlog.Logger.Err(err).Str("target", target).Msg("failed to stage files")
		respond.FailWithWarnings(c, http.StatusBadRequest, err, warnings)
		return
	}

	respond.OKWithWarnings(c, snap, warnings)
}

// Crop receives the confirmed gesture for the task currently awaiting one.
func (h *Handler) Crop(c *ginext.Context) {
	var req CropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to bind crop request")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid crop request: %v", err))
		return
	}

	snap, err := h.service.ApplyCrop(req.Container, req.Gesture)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to apply crop")
		respond.FailWithWarnings(c, http.StatusUnprocessableEntity, err, nil)
		return
	}

	respond.OK(c, snap)
}

// State returns the current queue snapshot.
func (h *Handler) State(c *ginext.Context) {
	respond.OK(c, h.service.Snapshot())
}

// Cancel clears the queue. Already-uploaded files are not retracted.
func (h *Handler) Cancel(c *ginext.Context) {
	respond.OK(c, h.service.Cancel())
}
