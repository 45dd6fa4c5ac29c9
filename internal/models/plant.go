package models

import (
	"strings"
	"time"
)

// CapturedPhoto is the image handle produced by a camera device.
// It belongs to the pipeline invocation that captured it.
type CapturedPhoto struct {
	ID         string    `json:"id"`
	URI        string    `json:"uri"`       // local handle reported by the device
	Payload    []byte    `json:"-"`         // raw image bytes
	MIMEType   string    `json:"mime_type"` // e.g. image/jpeg
	CapturedAt time.Time `json:"captured_at"`
}

// UploadReference is the locator returned by the media host after an upload.
type UploadReference struct {
	URL string `json:"url"`
}

// IsZero reports whether the reference carries no locator.
func (r UploadReference) IsZero() bool {
	return strings.TrimSpace(r.URL) == ""
}

// ClassificationResult is the backend's identification or health verdict for a photo.
type ClassificationResult struct {
	Name    string `json:"name"`
	Details string `json:"details"`
	Health  *bool  `json:"health,omitempty"`
}

// Healthy reports the health verdict. When the backend omits the flag, a name
// containing "unhealthy" marks the plant as unhealthy.
func (r *ClassificationResult) Healthy() bool {
	if r.Health != nil {
		return *r.Health
	}
	return !strings.Contains(strings.ToLower(r.Name), "unhealthy")
}

// PipelineContext is optional caller data passed through to classification.
type PipelineContext struct {
	Name string `json:"name,omitempty"` // garden entry name
}

// GardenPlant is one entry of the user's garden.
type GardenPlant struct {
	Name   string `json:"name"`
	Health bool   `json:"health"`
}

// CareStep is one step of a planting process.
type CareStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CareGuide holds the care requirements for a garden plant.
type CareGuide struct {
	Requirements []string   `json:"requirements"`
	Process      []CareStep `json:"process"`
}
