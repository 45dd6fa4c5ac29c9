// Package garden talks to the backend endpoints that keep the user's garden:
// adding a plant, listing the garden and fetching care guides.
package garden

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/models"
)

// PersistenceError reports a failed garden call. It is never fatal; callers
// log it and carry on.
type PersistenceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("garden %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("garden %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError reports whether err is a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Endpoints are the full URLs of the garden operations.
type Endpoints struct {
	Add  string
	List string
	Care string
}

// EndpointsFrom resolves the garden paths against the backend base URL.
func EndpointsFrom(cfg config.BackendConfig) Endpoints {
	return Endpoints{
		Add:  cfg.Endpoint(cfg.GardenAddPath),
		List: cfg.Endpoint(cfg.GardenListPath),
		Care: cfg.Endpoint(cfg.CarePath),
	}
}

// Client calls the garden endpoints.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
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

// WithTimeout sets a timeout on a copy of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d <= 0 {
			return
		}
		hc := *cl.httpClient
		hc.Timeout = d
		cl.httpClient = &hc
	}
}

// New creates a garden client.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nameRequest struct {
	Name string `json:"name"`
}

// post sends body (nil for no body) and decodes the response into dst when dst is non-nil.
func (c *Client) post(ctx context.Context, op, url string, body any, dst any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &PersistenceError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, rd)
	if err != nil {
		return &PersistenceError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "garden request", "op", op, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = resp.Status
		}
		return &PersistenceError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(text)}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &PersistenceError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Add saves a plant to the garden. The response body is ignored.
func (c *Client) Add(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return &PersistenceError{Op: "add", Err: errors.New("plant name is required")}
	}
	return c.post(ctx, "add", c.endpoints.Add, nameRequest{Name: name}, nil)
}

// List fetches the garden.
func (c *Client) List(ctx context.Context) ([]models.GardenPlant, error) {
	var plants []models.GardenPlant
	if err := c.post(ctx, "list", c.endpoints.List, nil, &plants); err != nil {
		return nil, err
	}
	return plants, nil
}

// Care fetches the care guide for a garden plant.
func (c *Client) Care(ctx context.Context, name string) (*models.CareGuide, error) {
	var guide models.CareGuide
	if err := c.post(ctx, "care", c.endpoints.Care, nameRequest{Name: name}, &guide); err != nil {
		return nil, err
	}
	return &guide, nil
}
