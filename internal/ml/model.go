package ml

import (
	"context"
	"fmt"
	"io"

	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/models"
)

// Kind selects what the model is asked about an image.
type Kind string

const (
	// Identify asks for the species of the plant.
	Identify Kind = "identify"
	// Health asks for a diagnosis of a garden plant.
	Health Kind = "health"
)

// Model classifies an uploaded plant image.
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// Classify makes a single classification call for the referenced image.
	Classify(ctx context.Context, ref models.UploadReference, pc *models.PipelineContext) (*models.ClassificationResult, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// NewModel creates a new model instance based on cfg.ML.Type
func NewModel(cfg *config.Config, kind Kind) (Model, error) {
	var factory ModelFactory

	switch cfg.ML.Type {
	case "", "remote":
		path := cfg.Backend.IdentifyPath
		if kind == Health {
			path = cfg.Backend.HealthPath
		}
		factory = NewRemoteModelFactory(RemoteConfig{
			Endpoint: cfg.Backend.Endpoint(path),
			Timeout:  cfg.Backend.Timeout(),
		})
	case "google":
		gc := GoogleConfig{
			BaseConfig: BaseConfig{
				ConfigPath: cfg.ML.ConfigPath,
			},
		}
		if err := gc.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(gc, kind)
	case "openai":
		oc := OpenAIConfig{
			BaseConfig: BaseConfig{
				ConfigPath: cfg.ML.ConfigPath,
			},
		}
		if err := oc.Load(); err != nil {
			return nil, fmt.Errorf("failed to load OpenAI config: %w", err)
		}
		factory = NewOpenAIModelFactory(oc, kind)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", cfg.ML.Type)
	}
	return factory.CreateModel()
}

// Close releases m if it holds resources, such as the Vertex AI client.
func Close(m Model) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
