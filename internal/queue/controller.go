package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/unimarket/image-uploader/internal/model"
)

// cropper runs the crop pipeline for one file.
type cropper interface {
	Crop(data []byte, container model.Dimensions, g model.Gesture, target model.CropTarget) ([]byte, string, error)
}

// uploader stores an encoded file and returns its public URL and object key.
type uploader interface {
	Upload(ctx context.Context, folder, subfolder, filename, contentType string, data []byte) (string, string, error)
}

// publisher announces a finished upload to the rest of the marketplace.
type publisher interface {
	PublishCompleted(ctx context.Context, ev model.UploadCompleted) error
}

// Config bounds the controller's upload behavior.
type Config struct {
	// Folder is the top-level object-storage folder for this service.
	Folder string
	// UploadTimeout bounds each individual upload attempt.
	UploadTimeout time.Duration
	// Retry governs upload attempts; the default is one retry after the
	// first failure.
	Retry retry.Strategy
	// EventBuffer sizes the event channel.
	EventBuffer int
}

const (
	defaultUploadTimeout = 30 * time.Second
	defaultEventBuffer   = 64
)

// Controller drives an ordered batch of selected files through crop and
// upload, one task at a time. Commands come in through its methods; state
// leaves it only as events and snapshots.
//
// At most one task is in cropping or uploading state at any time, and
// tasks are processed strictly in selection order.
type Controller struct {
	mu sync.Mutex

	ctx      context.Context
	cropper  cropper
	uploader uploader
	pub      publisher // may be nil
	cfg      Config

	state   State
	target  model.CropTarget
	tasks   []*model.UploadTask
	current int

	// gen invalidates in-flight upload callbacks after a cancel. The
	// network call itself is not aborted; its result is discarded.
	gen uint64

	events chan Event
}

// New creates an idle Controller. ctx bounds all asynchronous upload work
// started by the controller.
func New(ctx context.Context, c cropper, u uploader, p publisher, cfg Config) *Controller {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = retry.Strategy{Attempts: 2, Delay: time.Second, Backoff: 2}
	}

	return &Controller{
		ctx:      ctx,
		cropper:  c,
		uploader: u,
		pub:      p,
		cfg:      cfg,
		state:    StateIdle,
		current:  -1,
		events:   make(chan Event, cfg.EventBuffer),
	}
}

// Events returns the controller's event stream. Events are dropped, not
// blocked on, if the consumer falls behind.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Stage queues one pending task per file, preserving selection order.
// It is only valid when no earlier batch is still in progress.
func (c *Controller) Stage(files []model.SelectedFile, target model.CropTarget) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.state != StateCompleted {
		return fmt.Errorf("cannot stage files while queue is %s", c.state)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to stage")
	}

	tasks := make([]*model.UploadTask, 0, len(files))
	for _, f := range files {
		tasks = append(tasks, &model.UploadTask{
			ID:          uuid.New(),
			Filename:    f.Name,
			ContentType: f.ContentType,
			Size:        f.Size,
			State:       model.TaskPending,
			CreatedAt:   time.Now().UTC(),
			Data:        f.Data,
		})
	}

	c.tasks = tasks
	c.target = target
	c.current = -1
	c.state = StateStaged
	c.emit(Event{Kind: EventStaged, State: c.state})

	return nil
}

// BeginNext advances to the first pending task and asks the UI for a crop
// gesture by emitting EventCropRequested.
func (c *Controller) BeginNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStaged && c.state != StateActive {
		return fmt.Errorf("cannot begin next task while queue is %s", c.state)
	}

	return c.beginNextLocked()
}

// beginNextLocked moves the first pending task into cropping, or settles
// the queue when none remain. Caller holds c.mu.
func (c *Controller) beginNextLocked() error {
	if t := c.inFlightLocked(); t != nil {
		return fmt.Errorf("task %q is still %s", t.Filename, t.State)
	}

	for i, t := range c.tasks {
		if t.State != model.TaskPending {
			continue
		}
		if err := transition(t, model.TaskPending, model.TaskCropping); err != nil {
			return err
		}
		c.current = i
		c.state = StateActive
		c.emit(Event{Kind: EventCropRequested, TaskID: t.ID, Filename: t.Filename, State: c.state})
		return nil
	}

	c.settleLocked()
	return nil
}

// settleLocked finishes the run once no pending tasks remain.
func (c *Controller) settleLocked() {
	c.current = -1
	for _, t := range c.tasks {
		if t.State == model.TaskFailed {
			c.state = StatePartiallyFailed
			c.emit(Event{Kind: EventQueueFailed, State: c.state})
			return
		}
	}
	c.state = StateCompleted
	c.emit(Event{Kind: EventQueueCompleted, State: c.state})
}

// ApplyCrop runs the crop pipeline for the active task with the confirmed
// gesture and, on success, starts its upload. A decode or render failure
// fails only the current task; the remaining queue continues.
func (c *Controller) ApplyCrop(container model.Dimensions, g model.Gesture) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.current < 0 {
		return fmt.Errorf("no task is awaiting a crop gesture")
	}

	t := c.tasks[c.current]
	if t.State != model.TaskCropping {
		return fmt.Errorf("task %q is %s, not cropping", t.Filename, t.State)
	}

	encoded, contentType, err := c.cropper.Crop(t.Data, container, g, c.target)
	if err != nil {
		c.failTaskLocked(t, model.TaskCropping, err)
		if nextErr := c.beginNextLocked(); nextErr != nil {
			return nextErr
		}
		return err
	}

	if err := transition(t, model.TaskCropping, model.TaskUploading); err != nil {
		return err
	}
	c.emit(Event{Kind: EventTaskUploading, TaskID: t.ID, Filename: t.Filename, State: c.state})

	go c.runUpload(c.gen, t.ID, c.target.Name, t.Filename, contentType, encoded)

	return nil
}

// runUpload performs the upload with a bounded per-attempt timeout and a
// single retry, then reports the outcome back to the state machine.
func (c *Controller) runUpload(gen uint64, id uuid.UUID, subfolder, filename, contentType string, data []byte) {
	var url, key string

	err := retry.Do(func() error {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.UploadTimeout)
		defer cancel()

		var uploadErr error
		url, key, uploadErr = c.uploader.Upload(ctx, c.cfg.Folder, subfolder, filename, contentType, data)
		return uploadErr
	}, c.cfg.Retry)

	if err != nil {
		c.onUploadFailure(gen, id, err)
		return
	}
	c.onUploadSuccess(gen, id, url, key)
}

// onUploadSuccess marks the active task done and immediately advances to
// the next pending task, or settles the queue when none remain.
func (c *Controller) onUploadSuccess(gen uint64, id uuid.UUID, url, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.liveTaskLocked(gen, id, model.TaskUploading)
	if t == nil {
		return
	}

	if err := transition(t, model.TaskUploading, model.TaskDone); err != nil {
		zlog.Logger.Err(err).Str("filename", t.Filename).Msg("upload success on settled task")
		return
	}
	t.ResultURL = url
	t.StorageKey = key
	t.Data = nil
	c.emit(Event{Kind: EventTaskDone, TaskID: t.ID, Filename: t.Filename, URL: url, State: c.state})

	if c.pub != nil {
		ev := model.UploadCompleted{
			TaskID:    t.ID,
			Target:    c.target.Name,
			Filename:  t.Filename,
			URL:       url,
			Key:       key,
			CreatedAt: time.Now().UTC(),
		}
		go func() {
			if err := c.pub.PublishCompleted(c.ctx, ev); err != nil {
				zlog.Logger.Err(err).Str("filename", ev.Filename).Msg("failed to publish completion event")
			}
		}()
	}

	if err := c.beginNextLocked(); err != nil {
		zlog.Logger.Err(err).Msg("failed to advance queue")
	}
}

// onUploadFailure marks the active task failed and abandons the remaining
// queue: pending siblings stay pending and are never attempted. Tasks
// already done are not rolled back.
func (c *Controller) onUploadFailure(gen uint64, id uuid.UUID, uploadErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.liveTaskLocked(gen, id, model.TaskUploading)
	if t == nil {
		return
	}

	c.failTaskLocked(t, model.TaskUploading, uploadErr)
	c.current = -1
	c.state = StatePartiallyFailed
	c.emit(Event{Kind: EventQueueFailed, State: c.state})
}

// Cancel clears the queue from any state and returns it to Idle. Uploads
// already done are not retracted; an in-flight network call is not aborted
// but its result is discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.tasks = nil
	c.current = -1
	c.state = StateIdle
	c.emit(Event{Kind: EventCancelled, State: c.state})
}

// Snapshot returns a deep copy of the queue's observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks := make([]model.UploadTask, 0, len(c.tasks))
	for _, t := range c.tasks {
		cp := *t
		cp.Data = nil
		tasks = append(tasks, cp)
	}

	return Snapshot{
		State:        c.state,
		Target:       c.target.Name,
		CurrentIndex: c.current,
		Tasks:        tasks,
	}
}

// liveTaskLocked resolves an upload callback to its task, discarding
// callbacks from a cancelled generation or settled tasks.
func (c *Controller) liveTaskLocked(gen uint64, id uuid.UUID, want model.TaskState) *model.UploadTask {
	if gen != c.gen {
		return nil
	}
	for _, t := range c.tasks {
		if t.ID == id && t.State == want {
			return t
		}
	}
	return nil
}

func (c *Controller) inFlightLocked() *model.UploadTask {
	for _, t := range c.tasks {
		if t.State == model.TaskCropping || t.State == model.TaskUploading {
			return t
		}
	}
	return nil
}

func (c *Controller) failTaskLocked(t *model.UploadTask, from model.TaskState, cause error) {
	if err := transition(t, from, model.TaskFailed); err != nil {
		zlog.Logger.Err(err).Str("filename", t.Filename).Msg("failed to fail task")
		return
	}
	t.Error = cause.Error()
	t.Data = nil
	c.emit(Event{Kind: EventTaskFailed, TaskID: t.ID, Filename: t.Filename, Error: cause.Error(), State: c.state})
}

// emit never blocks; a slow consumer loses events rather than stalling
// the state machine.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		zlog.Logger.Warn().Str("kind", string(ev.Kind)).Msg("event buffer full, dropping event")
	}
}
