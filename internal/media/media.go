// Package media uploads captured photos to the media host that sits between
// the device and the classification backend.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/franckalain/plantcare/internal/models"
)

// ErrMissingURL is returned when the host answers without a secure_url.
var ErrMissingURL = errors.New("media host returned no secure_url")

// Host stores an image and returns a locator for it.
type Host interface {
	Upload(ctx context.Context, photo *models.CapturedPhoto) (models.UploadReference, error)
}

// StatusError reports a non-success HTTP status from the media host.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("media host: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("media host: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Client talks to a Cloudinary-style unsigned upload endpoint.
type Client struct {
	uploadURL  string
	preset     string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithTimeout sets a timeout on the HTTP client. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// New creates a client for the given upload endpoint and preset.
func New(uploadURL, preset string, opts ...Option) (*Client, error) {
	if uploadURL == "" {
		return nil, fmt.Errorf("media: upload URL is required")
	}
	c := &Client{
		uploadURL:  uploadURL,
		preset:     preset,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

type uploadRequest struct {
	File         string `json:"file"`
	UploadPreset string `json:"upload_preset"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DataURI encodes a photo as a base64 data URI.
func DataURI(photo *models.CapturedPhoto) string {
	mime := photo.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(photo.Payload)
}

// Upload performs a single POST of the photo. It never retries.
func (c *Client) Upload(ctx context.Context, photo *models.CapturedPhoto) (models.UploadReference, error) {
	if photo == nil || len(photo.Payload) == 0 {
		return models.UploadReference{}, fmt.Errorf("media: empty photo")
	}

	payload, err := json.Marshal(uploadRequest{File: DataURI(photo), UploadPreset: c.preset})
	if err != nil {
		return models.UploadReference{}, fmt.Errorf("media: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return models.UploadReference{}, fmt.Errorf("media: create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	c.logger.DebugContext(ctx, "uploading photo", "photo", photo.ID, "bytes", len(photo.Payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UploadReference{}, fmt.Errorf("media: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.UploadReference{}, fmt.Errorf("media: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var out uploadResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &out) == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return models.UploadReference{}, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return models.UploadReference{}, fmt.Errorf("media: decode response: %w", err)
	}
	if strings.TrimSpace(out.SecureURL) == "" {
		return models.UploadReference{}, ErrMissingURL
	}

	c.logger.DebugContext(ctx, "photo uploaded", "photo", photo.ID, "url", out.SecureURL)
	return models.UploadReference{URL: out.SecureURL}, nil
}
