package garden

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(Endpoints{
		Add:  server.URL + "/plant",
		List: server.URL + "/plants",
		Care: server.URL + "/getreq",
	}, WithHTTPClient(server.Client()))
}

func TestAdd(t *testing.T) {
	var got nameRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plant" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("saved"))
	})

	if err := c.Add(context.Background(), "Ficus elastica"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.Name != "Ficus elastica" {
		t.Errorf("name: got %q", got.Name)
	}
}

func TestAdd_EmptyName(t *testing.T) {
	c := New(Endpoints{Add: "http://unused.invalid"})
	if err := c.Add(context.Background(), " "); !IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plants" {
			http.NotFound(w, r)
			return
		}
		if body, _ := io.ReadAll(r.Body); len(body) != 0 {
			t.Errorf("expected empty body, got %q", body)
		}
		w.Write([]byte(`[{"name":"Ficus elastica","health":true},{"name":"Basil","health":false}]`))
	})

	plants, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []models.GardenPlant{{Name: "Ficus elastica", Health: true}, {Name: "Basil", Health: false}}
	if diff := cmp.Diff(want, plants); diff != "" {
		t.Errorf("plants mismatch (-want +got):\n%s", diff)
	}
}

func TestCare(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requirements":["Bright indirect light"],"process":[{"title":"Pot","description":"Use well-draining soil"}]}`))
	})

	guide, err := c.Care(context.Background(), "Ficus elastica")
	if err != nil {
		t.Fatalf("Care: %v", err)
	}
	want := &models.CareGuide{
		Requirements: []string{"Bright indirect light"},
		Process:      []models.CareStep{{Title: "Pot", Description: "Use well-draining soil"}},
	}
	if diff := cmp.Diff(want, guide); diff != "" {
		t.Errorf("guide mismatch (-want +got):\n%s", diff)
	}
}

func TestList_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	})

	_, err := c.List(context.Background())
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if pe.Op != "list" || pe.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected error: %+v", pe)
	}
	if pe.Error() != "garden list: HTTP 500: db down" {
		t.Errorf("error string: %q", pe.Error())
	}
}

func TestList_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	})
	if _, err := c.List(context.Background()); !IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestAdd_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(Endpoints{Add: url + "/plant"})
	if err := c.Add(context.Background(), "Basil"); !IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestEndpointsFrom(t *testing.T) {
	got := EndpointsFrom(config.BackendConfig{
		BaseURL:        "https://api.example/",
		GardenAddPath:  "/plant",
		GardenListPath: "plants",
		CarePath:       "/getreq",
	})
	want := Endpoints{
		Add:  "https://api.example/plant",
		List: "https://api.example/plants",
		Care: "https://api.example/getreq",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}
