package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/franckalain/plantcare/internal/models"
)

// RemoteConfig holds configuration for the backend classification API
type RemoteConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// RemoteModel implements the Model interface against the backend HTTP API
type RemoteModel struct {
	config     RemoteConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// RemoteModelFactory implements ModelFactory for the backend API
type RemoteModelFactory struct {
	config RemoteConfig
}

// NewRemoteModelFactory creates a new remote model factory
func NewRemoteModelFactory(config RemoteConfig) *RemoteModelFactory {
	return &RemoteModelFactory{config: config}
}

// CreateModel creates a new remote model instance
func (f *RemoteModelFactory) CreateModel() (Model, error) {
	if f.config.Endpoint == "" {
		return nil, fmt.Errorf("remote model: endpoint is required")
	}
	return &RemoteModel{config: f.config}, nil
}

// Load prepares the HTTP client; nothing is fetched.
func (m *RemoteModel) Load(ctx context.Context) error {
	hc := m.config.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if m.config.Timeout > 0 {
		c := *hc
		c.Timeout = m.config.Timeout
		hc = &c
	}
	m.httpClient = hc

	m.logger = m.config.Logger
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}

type classifyRequest struct {
	ImageURL string `json:"imageURL"`
	Name     string `json:"name,omitempty"`
}

// Classify posts the image reference, plus the garden entry name when given.
func (m *RemoteModel) Classify(ctx context.Context, ref models.UploadReference, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	if m.httpClient == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	body := classifyRequest{ImageURL: ref.URL}
	if pc != nil {
		body.Name = pc.Name
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	m.logger.DebugContext(ctx, "classification request", "endpoint", m.config.Endpoint, "image", ref.URL)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	return DecodeResult(data)
}
