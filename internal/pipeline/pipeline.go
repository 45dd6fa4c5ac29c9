// Package pipeline implements the capture-upload-classify chain shared by
// every camera screen: take a photo, push it to the media host, ask the
// classification backend about it, and hand the result or a typed failure
// back to the caller.
//
// A Pipeline is stateless and safe to share. Each call to Start returns an
// Invocation that owns its photo, upload reference and state; invocations
// never share anything, and the pipeline does not dedupe concurrent ones.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/franckalain/plantcare/internal/camera"
	"github.com/franckalain/plantcare/internal/media"
	"github.com/franckalain/plantcare/internal/ml"
	"github.com/franckalain/plantcare/internal/models"
)

// Pipeline wires a camera device, a media host and a classification model.
type Pipeline struct {
	device      camera.Device
	host        media.Host
	model       ml.Model
	captureOpts camera.Options
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a callback for every state change.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCaptureOptions overrides the options passed to the camera.
func WithCaptureOptions(o camera.Options) Option {
	return func(p *Pipeline) { p.captureOpts = o }
}

// New returns a pipeline. All three collaborators are required.
func New(device camera.Device, host media.Host, model ml.Model, opts ...Option) (*Pipeline, error) {
	if device == nil || host == nil || model == nil {
		return nil, errors.New("pipeline: device, host and model are required")
	}
	p := &Pipeline{
		device:      device,
		host:        host,
		model:       model,
		captureOpts: camera.DefaultOptions(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start begins a new invocation in the Idle state.
func (p *Pipeline) Start() *Invocation {
	return &Invocation{id: uuid.NewString(), p: p, state: Idle}
}

// Run performs capture, upload and classify on a fresh invocation.
func (p *Pipeline) Run(ctx context.Context, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	return p.Start().Run(ctx, pc)
}

func (p *Pipeline) emit(ev Event) {
	if ev.Err != nil {
		p.logger.Warn("pipeline step failed", "invocation", ev.Invocation, "from", ev.From.String(), "error", ev.Err)
	} else {
		p.logger.Debug("pipeline state", "invocation", ev.Invocation, "from", ev.From.String(), "to", ev.To.String())
	}
	if p.observer != nil {
		p.observer(ev)
	}
}

// Invocation is one pass through the pipeline. Its steps must be called in
// order: Capture, Upload, Classify. Done and Failed are terminal.
type Invocation struct {
	id string
	p  *Pipeline

	mu     sync.Mutex
	state  State
	photo  *models.CapturedPhoto
	ref    models.UploadReference
	url    string
	result *models.ClassificationResult
	err    error
}

// ID identifies the invocation in events and logs.
func (inv *Invocation) ID() string { return inv.id }

// State returns the current state.
func (inv *Invocation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Photo returns the photo captured by this invocation, if any. Its payload
// is released once the upload has finished.
func (inv *Invocation) Photo() *models.CapturedPhoto {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.photo
}

// ImageURL returns the media host locator of the uploaded photo. It stays
// available after the reference has been consumed by Classify.
func (inv *Invocation) ImageURL() string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.url
}

// Result returns the classification result once the invocation is Done.
func (inv *Invocation) Result() *models.ClassificationResult {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.result
}

// Err returns the failure that moved the invocation to Failed.
func (inv *Invocation) Err() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.err
}

// advance moves to the next state. check runs under the lock after the
// transition has been found legal and may veto it.
func (inv *Invocation) advance(to State, check func() error) error {
	inv.mu.Lock()
	from := inv.state
	if !from.CanTransition(to) {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if check != nil {
		if err := check(); err != nil {
			inv.mu.Unlock()
			return err
		}
	}
	inv.state = to
	inv.mu.Unlock()

	inv.p.emit(Event{Invocation: inv.id, From: from, To: to, At: inv.p.now()})
	return nil
}

// fail moves to Failed and returns err unchanged.
func (inv *Invocation) fail(err error) error {
	inv.mu.Lock()
	from := inv.state
	inv.state = Failed
	inv.err = err
	inv.mu.Unlock()

	inv.p.emit(Event{Invocation: inv.id, From: from, To: Failed, Err: err, At: inv.p.now()})
	return err
}

// Capture asks the device for permission and takes one photo.
func (inv *Invocation) Capture(ctx context.Context) (*models.CapturedPhoto, error) {
	if err := inv.advance(Capturing, nil); err != nil {
		return nil, err
	}

	granted, err := inv.p.device.RequestPermission(ctx)
	if err != nil {
		return nil, inv.fail(&CaptureError{Err: fmt.Errorf("request permission: %w", err)})
	}
	if !granted {
		return nil, inv.fail(&CaptureError{Err: camera.ErrPermissionDenied})
	}

	frame, err := inv.p.device.CapturePhoto(ctx, inv.p.captureOpts)
	if err != nil {
		return nil, inv.fail(&CaptureError{Err: err})
	}
	if frame == nil || len(frame.Payload) == 0 {
		return nil, inv.fail(&CaptureError{Err: camera.ErrNoData})
	}

	photo := &models.CapturedPhoto{
		ID:         uuid.NewString(),
		URI:        frame.URI,
		Payload:    frame.Payload,
		MIMEType:   camera.SniffMIME(frame.Payload),
		CapturedAt: inv.p.now(),
	}
	if err := inv.advance(Captured, func() error {
		inv.photo = photo
		return nil
	}); err != nil {
		return nil, err
	}
	return photo, nil
}

// Upload sends the photo captured by this invocation to the media host. It
// makes exactly one attempt.
func (inv *Invocation) Upload(ctx context.Context, photo *models.CapturedPhoto) (models.UploadReference, error) {
	err := inv.advance(Uploading, func() error {
		if photo == nil || photo != inv.photo {
			return fmt.Errorf("%w: photo was not captured by this invocation", ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return models.UploadReference{}, err
	}

	ref, err := inv.p.host.Upload(ctx, photo)
	inv.releasePayload()
	if err != nil {
		return models.UploadReference{}, inv.fail(&UploadError{StatusCode: statusOf(err), Err: err})
	}
	if ref.IsZero() {
		return models.UploadReference{}, inv.fail(&UploadError{Err: media.ErrMissingURL})
	}

	if err := inv.advance(Uploaded, func() error {
		inv.ref = ref
		inv.url = ref.URL
		return nil
	}); err != nil {
		return models.UploadReference{}, err
	}
	return ref, nil
}

func (inv *Invocation) releasePayload() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.photo != nil {
		inv.photo.Payload = nil
	}
}

// Classify submits the reference produced by this invocation's upload. The
// reference is consumed: it cannot be classified twice.
func (inv *Invocation) Classify(ctx context.Context, ref models.UploadReference, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	err := inv.advance(Classifying, func() error {
		if ref.IsZero() || ref != inv.ref {
			return fmt.Errorf("%w: reference was not produced by this invocation", ErrInvalidTransition)
		}
		inv.ref = models.UploadReference{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := inv.p.model.Classify(ctx, ref, pc)
	if err != nil {
		return nil, inv.fail(&ClassificationError{StatusCode: statusOf(err), Err: err})
	}
	if res == nil || strings.TrimSpace(res.Name) == "" {
		return nil, inv.fail(&ClassificationError{Err: ErrMalformedResult})
	}

	if err := inv.advance(Done, func() error {
		inv.result = res
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Run performs Capture, Upload and Classify in order and stops at the first
// failure, returning it unmodified.
func (inv *Invocation) Run(ctx context.Context, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	start := inv.p.now()
	inv.p.logger.InfoContext(ctx, "pipeline run started", "invocation", inv.id)

	photo, err := inv.Capture(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := inv.Upload(ctx, photo)
	if err != nil {
		return nil, err
	}
	res, err := inv.Classify(ctx, ref, pc)
	if err != nil {
		return nil, err
	}

	inv.p.logger.InfoContext(ctx, "pipeline run finished", "invocation", inv.id, "name", res.Name, "elapsed", inv.p.now().Sub(start))
	return res, nil
}
