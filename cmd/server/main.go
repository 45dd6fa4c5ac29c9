package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/database"
	"github.com/franckalain/plantcare/internal/garden"
	"github.com/franckalain/plantcare/internal/logging"
	"github.com/franckalain/plantcare/internal/media"
	"github.com/franckalain/plantcare/internal/ml"
	"github.com/franckalain/plantcare/internal/server"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatal("failed to load configuration", err)
	}
	if err := cfg.RequireBackend(); err != nil {
		fatal("invalid configuration", err)
	}
	if err := cfg.RequireMedia(); err != nil {
		fatal("invalid configuration", err)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Server.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()

	// Initialize ML services
	identify, err := ml.NewModel(cfg, ml.Identify)
	if err != nil {
		fatal("failed to create identification model", err)
	}
	defer ml.Close(identify)
	if err := identify.Load(ctx); err != nil {
		fatal("failed to load identification model", err)
	}
	health, err := ml.NewModel(cfg, ml.Health)
	if err != nil {
		fatal("failed to create health model", err)
	}
	defer ml.Close(health)
	if err := health.Load(ctx); err != nil {
		fatal("failed to load health model", err)
	}

	host, err := media.New(cfg.Media.UploadURL, cfg.Media.UploadPreset,
		media.WithTimeout(cfg.Media.Timeout()),
		media.WithLogger(logging.New("media")),
	)
	if err != nil {
		fatal("failed to create media client", err)
	}

	gardenClient := garden.New(garden.EndpointsFrom(cfg.Backend),
		garden.WithTimeout(cfg.Backend.Timeout()),
		garden.WithLogger(logging.New("garden")),
	)

	// Initialize and start server
	srv := server.New(server.Deps{
		DB:       db,
		Host:     host,
		Identify: identify,
		Health:   health,
		Garden:   gardenClient,
	}, logging.New("server"))
	if err := srv.Start(ctx, cfg.Server.Port, cfg.Server.StaticDir); err != nil {
		fatal("server stopped", err)
	}
}
