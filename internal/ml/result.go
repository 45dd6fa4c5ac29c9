package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/franckalain/plantcare/internal/models"
)

// ErrMalformedResponse marks a classification body that is missing expected fields.
var ErrMalformedResponse = errors.New("malformed classification response")

// StatusError reports a non-success HTTP status from a classification endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classification endpoint: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("classification endpoint: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// DecodeResult parses a classification body and checks its fields. The
// returned result holds exactly the decoded values.
func DecodeResult(data []byte) (*models.ClassificationResult, error) {
	// First unmarshal into a map to check for missing fields
	var rawMap map[string]interface{}
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rawMap == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedResponse)
	}

	name, ok := rawMap["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: missing required field 'name'", ErrMalformedResponse)
	}
	// details may be empty but must be present.
	if v, exists := rawMap["details"]; !exists || v == nil {
		return nil, fmt.Errorf("%w: missing required field 'details'", ErrMalformedResponse)
	} else if _, ok := v.(string); !ok {
		return nil, fmt.Errorf("%w: field 'details' is %T, want string", ErrMalformedResponse, v)
	}
	if v, exists := rawMap["health"]; exists && v != nil {
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("%w: field 'health' is %T, want bool", ErrMalformedResponse, v)
		}
	}

	// Now unmarshal into our struct
	var result models.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}

// stripFences removes a markdown code fence that language models like to wrap
// JSON answers in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
