package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/franckalain/plantcare/internal/camera"
	"github.com/franckalain/plantcare/internal/database"
	"github.com/franckalain/plantcare/internal/media"
	"github.com/franckalain/plantcare/internal/ml"
	"github.com/franckalain/plantcare/internal/models"
	"github.com/franckalain/plantcare/internal/pipeline"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	// maxMessageBytes bounds one inbound frame; base64 photos dominate.
	maxMessageBytes = 32 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

// Garden is the remote garden the server proxies for the UI.
type Garden interface {
	Add(ctx context.Context, name string) error
	List(ctx context.Context) ([]models.GardenPlant, error)
	Care(ctx context.Context, name string) (*models.CareGuide, error)
}

// Deps are the collaborators a Server needs. DB and Garden may be nil, in
// which case history and garden messages report an error.
type Deps struct {
	DB       database.DB
	Host     media.Host
	Identify ml.Model
	Health   ml.Model
	Garden   Garden
}

type Server struct {
	deps      Deps
	logger    *slog.Logger
	router    *mux.Router
	readLimit int64
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger, readLimit: maxMessageBytes}

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the routes without static file serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port, staticDir string) error {
	if staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting server", "port", port, "static_dir", staticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// client serializes writes to one websocket connection.
type client struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *slog.Logger
}

func (c *client) sendMessage(messageType string, data any) {
	c.write(map[string]any{
		"type": messageType,
		"data": data,
	})
}

func (c *client) sendError(message string) {
	c.write(map[string]any{
		"type":    "error",
		"message": message,
	})
}

func (c *client) write(msg map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("error sending message", "type", msg["type"], "error", err)
	}
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.readLimit)

	c := &client{id: uuid.NewString(), conn: conn}
	c.logger = s.logger.With("client", c.id)
	c.logger.Info("client connected")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		c.logger.Info("client disconnected")
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("error reading message", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message format")
			continue
		}

		// Scans run concurrently so a slow classification never blocks the
		// connection; each one is its own invocation.
		if msg.Type == "scan" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleScan(ctx, c, msg.Data)
			}()
			continue
		}
		s.handleWebSocketMessage(ctx, c, msg)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, c *client, msg inbound) {
	switch msg.Type {
	case "add_to_garden":
		s.handleAddToGarden(ctx, c, msg.Data)
	case "get_garden":
		s.handleGetGarden(ctx, c)
	case "get_care":
		s.handleGetCare(ctx, c, msg.Data)
	case "get_history":
		s.handleGetHistory(ctx, c, msg.Data)
	default:
		c.sendError("Unknown message type")
	}
}

type scanRequest struct {
	Image string `json:"image"`
	Name  string `json:"name,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

type stateMessage struct {
	pipeline.Event
	View pipeline.View `json:"view"`
}

type scanResult struct {
	ID       string                       `json:"id"`
	Kind     models.ScanKind              `json:"kind"`
	PhotoURI string                       `json:"photo_uri"`
	ImageURL string                       `json:"image_url"`
	Result   *models.ClassificationResult `json:"result"`
}

func (s *Server) modelFor(mode string) (ml.Model, models.ScanKind, bool) {
	switch mode {
	case "", string(models.ScanIdentify):
		return s.deps.Identify, models.ScanIdentify, s.deps.Identify != nil
	case string(models.ScanHealth):
		return s.deps.Health, models.ScanHealth, s.deps.Health != nil
	}
	return nil, "", false
}

func (s *Server) handleScan(ctx context.Context, c *client, data json.RawMessage) {
	var req scanRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Image == "" {
		c.sendError("Invalid image data")
		return
	}

	model, kind, ok := s.modelFor(req.Mode)
	if !ok {
		c.sendError("Unsupported scan mode")
		return
	}

	// Accept both bare base64 and data URIs from the browser.
	imageStr := req.Image
	if i := strings.Index(imageStr, ";base64,"); i >= 0 && strings.HasPrefix(imageStr, "data:") {
		imageStr = imageStr[i+len(";base64,"):]
	}
	imageData, err := base64.StdEncoding.DecodeString(imageStr)
	if err != nil {
		c.sendError("Invalid image format")
		return
	}

	uri := "frame://" + c.id + "/" + uuid.NewString()
	var inv *pipeline.Invocation
	p, err := pipeline.New(camera.NewFrameDevice(uri, imageData, true), s.deps.Host, model,
		pipeline.WithLogger(c.logger),
		pipeline.WithObserver(func(ev pipeline.Event) {
			c.sendMessage("state", stateMessage{Event: ev, View: inv.View()})
		}),
	)
	if err != nil {
		c.logger.Error("cannot build pipeline", "error", err)
		c.sendError("Scanner unavailable")
		return
	}
	inv = p.Start()

	var pc *models.PipelineContext
	if req.Name != "" {
		pc = &models.PipelineContext{Name: req.Name}
	}
	res, err := inv.Run(ctx, pc)
	if err != nil {
		if alert := inv.View().Alert; alert != "" {
			c.sendError(alert)
		} else {
			c.sendError("Cannot take photo")
		}
		return
	}

	scan := database.NewScan(kind, inv.Photo(), inv.ImageURL(), res)
	if s.deps.DB != nil {
		if err := s.deps.DB.SaveScan(ctx, scan); err != nil {
			c.logger.Warn("error saving scan", "scan", scan.ID, "error", err)
		}
	}

	c.sendMessage("scan_result", scanResult{
		ID:       scan.ID,
		Kind:     kind,
		PhotoURI: scan.PhotoURI,
		ImageURL: scan.ImageURL,
		Result:   res,
	})
}

type nameRequest struct {
	Name string `json:"name"`
}

func decodeName(data json.RawMessage) string {
	var req nameRequest
	if len(data) == 0 || json.Unmarshal(data, &req) != nil {
		return ""
	}
	return strings.TrimSpace(req.Name)
}

func (s *Server) handleAddToGarden(ctx context.Context, c *client, data json.RawMessage) {
	name := decodeName(data)
	if name == "" {
		c.sendError("Missing plant name")
		return
	}
	if s.deps.Garden == nil {
		c.logger.Warn("garden not configured, plant not added", "name", name)
		return
	}
	if err := s.deps.Garden.Add(ctx, name); err != nil {
		c.logger.Warn("error adding plant to garden", "name", name, "error", err)
		return
	}
	c.logger.Info("plant added to garden", "name", name)
	s.handleGetGarden(ctx, c)
}

func (s *Server) handleGetGarden(ctx context.Context, c *client) {
	if s.deps.Garden == nil {
		c.sendError("Garden unavailable")
		return
	}
	plants, err := s.deps.Garden.List(ctx)
	if err != nil {
		c.logger.Warn("error fetching garden", "error", err)
		c.sendError("Failed to retrieve garden")
		return
	}
	if plants == nil {
		plants = []models.GardenPlant{}
	}
	c.sendMessage("garden", plants)
}

func (s *Server) handleGetCare(ctx context.Context, c *client, data json.RawMessage) {
	name := decodeName(data)
	if name == "" {
		c.sendError("Missing plant name")
		return
	}
	if s.deps.Garden == nil {
		c.sendError("Garden unavailable")
		return
	}
	guide, err := s.deps.Garden.Care(ctx, name)
	if err != nil {
		c.logger.Warn("error fetching care guide", "name", name, "error", err)
		c.sendError("Failed to retrieve care guide")
		return
	}
	c.sendMessage("care", map[string]any{
		"name":  name,
		"guide": guide,
	})
}

func (s *Server) handleGetHistory(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		Filter string `json:"filter"`
		Limit  int    `json:"limit"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError("Invalid history request")
			return
		}
	}
	filter, ok := models.ParseScanFilter(req.Filter)
	if !ok {
		c.sendError("Unknown history filter")
		return
	}

	scans, err := s.recentScans(ctx, req.Limit, filter)
	if err != nil {
		c.logger.Warn("error retrieving history", "error", err)
		c.sendError("Failed to retrieve history")
		return
	}
	c.sendMessage("history", map[string]any{
		"filter": filter,
		"items":  scans,
	})
}

func (s *Server) recentScans(ctx context.Context, limit int, filter models.ScanFilter) ([]*models.Scan, error) {
	if s.deps.DB == nil {
		return nil, errors.New("history not configured")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	scans, err := s.deps.DB.RecentScans(ctx, limit, filter)
	if err != nil {
		return nil, err
	}
	if scans == nil {
		scans = []*models.Scan{}
	}
	return scans, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, ok := models.ParseScanFilter(q.Get("filter"))
	if !ok {
		http.Error(w, "unknown filter", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	scans, err := s.recentScans(r.Context(), limit, filter)
	if err != nil {
		s.logger.Warn("error retrieving history", "error", err)
		http.Error(w, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(scans); err != nil {
		s.logger.Warn("error writing history", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
