package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/franckalain/plantcare/internal/models"
)

func openAIServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func loadOpenAI(t *testing.T, baseURL string, kind Kind) Model {
	t.Helper()
	cfg := OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: baseURL}
	m, err := NewOpenAIModelFactory(cfg, kind).CreateModel()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestOpenAIModel_Classify(t *testing.T) {
	var seen map[string]any
	server := openAIServer(t, "```json\n{\"name\":\"Ficus elastica\",\"details\":\"Rubber plant\",\"health\":true}\n```", &seen)
	defer server.Close()

	m := loadOpenAI(t, server.URL, Identify)
	res, err := m.Classify(context.Background(), models.UploadReference{URL: "https://host/x.jpg"}, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := &models.ClassificationResult{Name: "Ficus elastica", Details: "Rubber plant", Health: boolPtr(true)}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", seen["messages"])
	}
	parts, _ := msgs[0].(map[string]any)["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %v", parts)
	}
	img, _ := parts[1].(map[string]any)["image_url"].(map[string]any)
	if img["url"] != "https://host/x.jpg" {
		t.Errorf("image url: got %v", img["url"])
	}
}

func TestOpenAIModel_MalformedAnswer(t *testing.T) {
	server := openAIServer(t, `I think this is a ficus.`, nil)
	defer server.Close()

	m := loadOpenAI(t, server.URL, Identify)
	_, err := m.Classify(context.Background(), models.UploadReference{URL: "https://host/x.jpg"}, nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestOpenAIConfig_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := OpenAIConfig{BaseConfig: BaseConfig{ConfigPath: t.TempDir() + "/absent.json"}}
	if err := c.Load(); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestOpenAIConfig_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_MODEL", "")
	c := OpenAIConfig{}
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIKey != "from-env" || c.Model == "" {
		t.Errorf("unexpected config: %+v", c)
	}
}
