package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fakeBackend serves the media host under /media and the plant backend
// under its default paths.
type fakeBackend struct {
	server       *httptest.Server
	uploadStatus int

	mu    sync.Mutex
	added []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{uploadStatus: http.StatusOK}
	uploads := 0
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media":
			b.mu.Lock()
			uploads++
			n := uploads
			b.mu.Unlock()
			w.WriteHeader(b.uploadStatus)
			fmt.Fprintf(w, `{"secure_url":"https://media.example/%d.jpg"}`, n)
		case "/upload":
			var req struct {
				ImageURL string `json:"imageURL"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			fmt.Fprintf(w, `{"name":"Plant from %s","details":"Bright light"}`, filepath.Base(req.ImageURL))
		case "/health":
			w.Write([]byte(`{"name":"Basil (unhealthy)","details":"Downy mildew","health":false}`))
		case "/plant":
			var req struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			b.mu.Lock()
			b.added = append(b.added, req.Name)
			b.mu.Unlock()
		case "/plants":
			w.Write([]byte(`[{"name":"Tomato","health":true}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
		"media": {"upload_url": %q},
		"backend": {"base_url": %q},
		"database": {"path": %q}
	}`, b.server.URL+"/media", b.server.URL, filepath.Join(dir, "history.db"))
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0xe0}, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScan_MultipleImagesAndHistory(t *testing.T) {
	b := newFakeBackend(t)
	cfg := b.writeConfig(t)

	out, err := execute(t, "scan", writeImage(t, "a.jpg"), writeImage(t, "b.jpg"), "--parallel", "2", "--config", cfg, "-o", "markdown")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	lower := strings.ToLower(out)
	for _, want := range []string{"a.jpg", "b.jpg", "plant from", "2 ok"} {
		if !strings.Contains(lower, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = execute(t, "history", "--config", cfg, "-o", "markdown")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if got := strings.Count(out, "Plant from"); got != 2 {
		t.Errorf("expected 2 history rows, got %d:\n%s", got, out)
	}
}

func TestScan_SaveAddsToGarden(t *testing.T) {
	b := newFakeBackend(t)
	cfg := b.writeConfig(t)

	if out, err := execute(t, "scan", writeImage(t, "a.jpg"), "--save", "--config", cfg); err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if diff := cmp.Diff([]string{"Plant from 1.jpg"}, b.added); diff != "" {
		t.Errorf("garden adds (-want +got):\n%s", diff)
	}
}

func TestScan_AllFailed(t *testing.T) {
	b := newFakeBackend(t)
	b.uploadStatus = http.StatusInternalServerError
	cfg := b.writeConfig(t)

	out, err := execute(t, "scan", writeImage(t, "a.jpg"), "--config", cfg, "-o", "markdown")
	if err == nil {
		t.Fatalf("expected error, got output:\n%s", out)
	}
	if !strings.Contains(out, "error: upload") {
		t.Errorf("expected upload error row:\n%s", out)
	}
}

func TestHealth(t *testing.T) {
	b := newFakeBackend(t)
	cfg := b.writeConfig(t)

	if _, err := execute(t, "health", writeImage(t, "basil.jpg"), "--config", cfg); err == nil {
		t.Fatal("expected error without --name")
	}

	out, err := execute(t, "health", writeImage(t, "basil.jpg"), "--name", "Basil", "--config", cfg, "-o", "markdown")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✗ unhealthy") {
		t.Errorf("expected unhealthy verdict:\n%s", out)
	}

	out, err = execute(t, "history", "--filter", "unhealthy", "--config", cfg, "-o", "markdown")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Basil (unhealthy)") {
		t.Errorf("expected health scan in history:\n%s", out)
	}
}

func TestGarden(t *testing.T) {
	b := newFakeBackend(t)
	cfg := b.writeConfig(t)

	out, err := execute(t, "garden", "list", "--config", cfg, "-o", "markdown")
	if err != nil {
		t.Fatalf("garden list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Tomato") {
		t.Errorf("expected Tomato in output:\n%s", out)
	}

	if out, err := execute(t, "garden", "add", "Mint", "--config", cfg); err != nil {
		t.Fatalf("garden add: %v\n%s", err, out)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if diff := cmp.Diff([]string{"Mint"}, b.added); diff != "" {
		t.Errorf("garden adds (-want +got):\n%s", diff)
	}
}

func TestHistory_RejectsUnknownFilter(t *testing.T) {
	if _, err := execute(t, "history", "--filter", "wilted"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}

func writeLocalConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("PLANTCARE_BACKEND_URL", "")
	t.Setenv("PLANTCARE_UPLOAD_URL", "")
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{"database": {"path": %q}}`, filepath.Join(dir, "history.db"))
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHistory_WithoutRemoteEndpoints(t *testing.T) {
	cfg := writeLocalConfig(t)

	out, err := execute(t, "history", "--config", cfg)
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No scans yet.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRemoteCommands_RequireEndpoints(t *testing.T) {
	cfg := writeLocalConfig(t)

	_, err := execute(t, "garden", "list", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("garden list: got %v, want base_url error", err)
	}
	_, err = execute(t, "scan", writeImage(t, "a.jpg"), "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "upload_url") {
		t.Errorf("scan: got %v, want upload_url error", err)
	}
}
