package pipeline

import (
	"errors"
)

// ErrInvalidTransition is returned when a step is called out of order.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

// ErrMalformedResult is returned when a classifier hands back no usable result.
var ErrMalformedResult = errors.New("classification result has no name")

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// CaptureError reports a camera or permission failure.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return "capture: " + e.Err.Error() }
func (e *CaptureError) Unwrap() error { return e.Err }

// UploadError reports a transport or malformed-response failure during media upload.
type UploadError struct {
	StatusCode int // 0 when no HTTP status was received
	Err        error
}

func (e *UploadError) Error() string { return "upload: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

// ClassificationError reports a transport or malformed-response failure during classification.
type ClassificationError struct {
	StatusCode int
	Err        error
}

func (e *ClassificationError) Error() string { return "classify: " + e.Err.Error() }
func (e *ClassificationError) Unwrap() error { return e.Err }

// IsCaptureError reports whether err came from the capture step.
func IsCaptureError(err error) bool {
	var e *CaptureError
	return errors.As(err, &e)
}

// IsUploadError reports whether err came from the upload step.
func IsUploadError(err error) bool {
	var e *UploadError
	return errors.As(err, &e)
}

// IsClassificationError reports whether err came from the classify step.
func IsClassificationError(err error) bool {
	var e *ClassificationError
	return errors.As(err, &e)
}
