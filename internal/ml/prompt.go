package ml

import (
	"fmt"

	"github.com/franckalain/plantcare/internal/models"
)

const identifyPrompt = `Identify the plant in this photo.
Respond with a single JSON object and nothing else:
{
	"name": "common or botanical name of the species",
	"details": "a short description with care notes (light, water, soil, toxicity to pets)",
	"health": true or false
}
If the image does not show a plant, set "name" to "Unknown" and explain why in "details".`

const healthPromptFormat = `This photo shows the garden plant %q.
Assess its health. Respond with a single JSON object and nothing else:
{
	"name": "Healthy" or "Unhealthy" followed by the main finding,
	"details": "symptoms observed and what the owner should do",
	"health": true if the plant is healthy, false otherwise
}`

// promptFor returns the instruction sent with the image.
func promptFor(kind Kind, pc *models.PipelineContext) string {
	if kind == Health {
		name := "unnamed plant"
		if pc != nil && pc.Name != "" {
			name = pc.Name
		}
		return fmt.Sprintf(healthPromptFormat, name)
	}
	return identifyPrompt
}
