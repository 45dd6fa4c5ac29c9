package ml

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/franckalain/plantcare/internal/models"
	"google.golang.org/api/option"
)

const maxImageBytes = 20 << 20

// GoogleConfig holds configuration for the Google model
type GoogleConfig struct {
	BaseConfig
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Location        string `json:"location" yaml:"location"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Model           string `json:"model" yaml:"model"`
}

// Load loads the Google configuration
func (c *GoogleConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "google", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	envOr(&c.ProjectID, "GOOGLE_PROJECT_ID")
	envOr(&c.Location, "GOOGLE_LOCATION")
	envOr(&c.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	envOr(&c.Model, "GOOGLE_MODEL")
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}
	if c.ProjectID == "" || c.Location == "" {
		return fmt.Errorf("project_id and location are required")
	}
	return nil
}

// GoogleModel implements the Model interface for Google's Vertex AI
type GoogleModel struct {
	config     GoogleConfig
	kind       Kind
	client     *genai.Client
	model      *genai.GenerativeModel
	httpClient *http.Client
}

// GoogleModelFactory implements ModelFactory for Google models
type GoogleModelFactory struct {
	config GoogleConfig
	kind   Kind
}

// NewGoogleModelFactory creates a new Google model factory
func NewGoogleModelFactory(config GoogleConfig, kind Kind) *GoogleModelFactory {
	return &GoogleModelFactory{config: config, kind: kind}
}

// CreateModel creates a new Google model instance
func (f *GoogleModelFactory) CreateModel() (Model, error) {
	return &GoogleModel{
		config:     f.config,
		kind:       f.kind,
		httpClient: &http.Client{},
	}, nil
}

// Load initializes the Google model
func (m *GoogleModel) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	m.client = client
	m.model = client.GenerativeModel(m.config.Model)
	m.model.ResponseMIMEType = "application/json"
	return nil
}

// Classify downloads the uploaded image and asks Gemini about it
func (m *GoogleModel) Classify(ctx context.Context, ref models.UploadReference, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	if m.model == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	imageData, err := fetchImage(ctx, m.httpClient, ref.URL)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(http.DetectContentType(imageData), "image/")
	if strings.Contains(format, "/") {
		format = "jpeg"
	}

	resp, err := m.model.GenerateContent(ctx, genai.Text(promptFor(m.kind, pc)), genai.ImageData(format, imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to call ai: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no response generated", ErrMalformedResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content in response", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return DecodeResult([]byte(stripFences(sb.String())))
}

// Close releases the Vertex AI client.
func (m *GoogleModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func fetchImage(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: "fetch image " + url}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
