// Package camera defines the camera device capability consumed by the capture
// pipeline, and the devices this module ships: a file-backed device for the
// command line and a frame device fed by a remote UI.
package camera

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrPermissionDenied is returned when the user has not granted camera access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoData is returned when the device produced an empty frame.
	ErrNoData = errors.New("camera produced no data")
	// ErrInvalidOptions is returned when a capture is requested with options
	// outside their documented ranges.
	ErrInvalidOptions = errors.New("invalid capture options")
)

// Encoding of the payload handed back by the device.
type Encoding string

const (
	EncodingRaw    Encoding = "raw"
	EncodingBase64 Encoding = "base64"
)

// Facing selects the lens.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Options are passed to the device for each capture.
type Options struct {
	Quality  float64  // (0, 1] compression quality
	Encoding Encoding // how the photo travels to the device's host
	Facing   Facing
}

// Validate reports whether every field holds a known value.
func (o Options) Validate() error {
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("%w: quality %v not in (0, 1]", ErrInvalidOptions, o.Quality)
	}
	switch o.Encoding {
	case EncodingRaw, EncodingBase64:
	default:
		return fmt.Errorf("%w: unknown encoding %q", ErrInvalidOptions, o.Encoding)
	}
	switch o.Facing {
	case FacingBack, FacingFront:
	default:
		return fmt.Errorf("%w: unknown facing %q", ErrInvalidOptions, o.Facing)
	}
	return nil
}

// DefaultOptions matches what the camera screens request.
func DefaultOptions() Options {
	return Options{Quality: 0.7, Encoding: EncodingBase64, Facing: FacingBack}
}

// Frame is what a device returns from a capture.
type Frame struct {
	URI     string
	Payload []byte
}

// Device is the camera capability.
//
// Frame.Payload is always the decoded image bytes, whatever Encoding was
// requested. Devices reject invalid Options but may otherwise ignore them:
// a file or a pushed frame has no lens to pick and is never re-compressed.
type Device interface {
	// RequestPermission asks for camera access and reports whether it was granted.
	RequestPermission(ctx context.Context) (bool, error)
	// CapturePhoto takes one picture.
	CapturePhoto(ctx context.Context, opts Options) (*Frame, error)
}

// SniffMIME returns the image MIME type of payload, defaulting to image/jpeg.
func SniffMIME(payload []byte) string {
	ct := http.DetectContentType(payload)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// FileDevice captures by reading an image file from disk.
type FileDevice struct {
	Path string
	// Denied simulates a user refusing camera access.
	Denied bool
}

// NewFileDevice returns a device that reads path on every capture.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{Path: path}
}

func (d *FileDevice) RequestPermission(ctx context.Context) (bool, error) {
	return !d.Denied, nil
}

func (d *FileDevice) CapturePhoto(ctx context.Context, opts Options) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	abs, err := filepath.Abs(d.Path)
	if err != nil {
		abs = d.Path
	}
	return &Frame{URI: "file://" + filepath.ToSlash(abs), Payload: data}, nil
}

// FrameDevice hands out frames pushed by a remote UI. Each pushed frame is
// returned by exactly one capture.
type FrameDevice struct {
	mu      sync.Mutex
	granted bool
	frame   *Frame
}

// NewFrameDevice returns a device holding a single pushed frame.
func NewFrameDevice(uri string, payload []byte, granted bool) *FrameDevice {
	return &FrameDevice{granted: granted, frame: &Frame{URI: uri, Payload: payload}}
}

func (d *FrameDevice) RequestPermission(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted, nil
}

func (d *FrameDevice) CapturePhoto(ctx context.Context, opts Options) (*Frame, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil {
		return nil, ErrNoData
	}
	f := d.frame
	d.frame = nil
	return f, nil
}
