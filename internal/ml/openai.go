package ml

import (
	"context"
	"fmt"

	"github.com/franckalain/plantcare/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI model
type OpenAIConfig struct {
	BaseConfig
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Load loads the OpenAI configuration
func (c *OpenAIConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "openai", c); err != nil {
		return err
	}

	envOr(&c.APIKey, "OPENAI_API_KEY")
	envOr(&c.Model, "OPENAI_MODEL")
	envOr(&c.BaseURL, "OPENAI_BASE_URL")
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

// OpenAIModel implements the Model interface with an OpenAI vision chat model.
// The image is passed by URL, so nothing is downloaded locally.
type OpenAIModel struct {
	config OpenAIConfig
	kind   Kind
	client *openai.Client
}

// OpenAIModelFactory implements ModelFactory for OpenAI models
type OpenAIModelFactory struct {
	config OpenAIConfig
	kind   Kind
}

// NewOpenAIModelFactory creates a new OpenAI model factory
func NewOpenAIModelFactory(config OpenAIConfig, kind Kind) *OpenAIModelFactory {
	return &OpenAIModelFactory{config: config, kind: kind}
}

// CreateModel creates a new OpenAI model instance
func (f *OpenAIModelFactory) CreateModel() (Model, error) {
	return &OpenAIModel{config: f.config, kind: f.kind}, nil
}

// Load builds the API client
func (m *OpenAIModel) Load(ctx context.Context) error {
	cc := openai.DefaultConfig(m.config.APIKey)
	if m.config.BaseURL != "" {
		cc.BaseURL = m.config.BaseURL
	}
	m.client = openai.NewClientWithConfig(cc)
	return nil
}

// Classify sends the image URL with the prompt and parses the JSON answer
func (m *OpenAIModel) Classify(ctx context.Context, ref models.UploadReference, pc *models.PipelineContext) (*models.ClassificationResult, error) {
	if m.client == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.config.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: promptFor(m.kind, pc),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    ref.URL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return DecodeResult([]byte(stripFences(resp.Choices[0].Message.Content)))
}
