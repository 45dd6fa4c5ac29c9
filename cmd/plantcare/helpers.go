package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/franckalain/plantcare/internal/camera"
	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/database"
	"github.com/franckalain/plantcare/internal/format"
	"github.com/franckalain/plantcare/internal/garden"
	"github.com/franckalain/plantcare/internal/logging"
	"github.com/franckalain/plantcare/internal/media"
	"github.com/franckalain/plantcare/internal/ml"
	"github.com/franckalain/plantcare/internal/models"
	"github.com/franckalain/plantcare/internal/pipeline"
)

// app bundles what every subcommand needs after flags are parsed.
type app struct {
	cfg    *config.Config
	mode   format.Mode
	logger *slog.Logger
}

func newApp() (*app, error) {
	mode, err := format.ParseMode(rootFlags.output)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(rootFlags.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	logging.Init(logging.ParseLevel(level), cfg.Log.Format)

	return &app{cfg: cfg, mode: mode, logger: logging.New("cli")}, nil
}

func (a *app) garden() (*garden.Client, error) {
	if err := a.cfg.RequireBackend(); err != nil {
		return nil, err
	}
	return garden.New(garden.EndpointsFrom(a.cfg.Backend),
		garden.WithTimeout(a.cfg.Backend.Timeout()),
		garden.WithLogger(logging.New("garden")),
	), nil
}

func (a *app) openDB(ctx context.Context) (database.DB, error) {
	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return db, nil
}

// scanner holds the collaborators shared by every image of one command.
type scanner struct {
	kind  models.ScanKind
	host  media.Host
	model ml.Model
	db    database.DB // optional
	log   *slog.Logger
}

func (a *app) scanner(ctx context.Context, kind ml.Kind) (*scanner, error) {
	if err := a.cfg.RequireMedia(); err != nil {
		return nil, err
	}
	if a.cfg.ML.Type == "remote" {
		if err := a.cfg.RequireBackend(); err != nil {
			return nil, err
		}
	}
	host, err := media.New(a.cfg.Media.UploadURL, a.cfg.Media.UploadPreset,
		media.WithTimeout(a.cfg.Media.Timeout()),
		media.WithLogger(logging.New("media")),
	)
	if err != nil {
		return nil, err
	}
	model, err := ml.NewModel(a.cfg, kind)
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	if err := model.Load(ctx); err != nil {
		ml.Close(model)
		return nil, fmt.Errorf("load model: %w", err)
	}

	s := &scanner{host: host, model: model, log: logging.New("pipeline")}
	s.kind = models.ScanIdentify
	if kind == ml.Health {
		s.kind = models.ScanHealth
	}
	if db, err := a.openDB(ctx); err != nil {
		a.logger.Warn("history disabled", "error", err)
	} else {
		s.db = db
	}
	return s, nil
}

func (s *scanner) Close() {
	if err := ml.Close(s.model); err != nil {
		s.log.Warn("failed to close model", "error", err)
	}
	if s.db != nil {
		s.db.Close()
	}
}

// scanOne runs one independent invocation over the image at path.
func (s *scanner) scanOne(ctx context.Context, path string, pc *models.PipelineContext) format.Outcome {
	out := format.Outcome{Image: path}
	p, err := pipeline.New(camera.NewFileDevice(path), s.host, s.model, pipeline.WithLogger(s.log))
	if err != nil {
		out.Err = err
		return out
	}
	inv := p.Start()
	res, err := inv.Run(ctx, pc)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res

	if s.db != nil {
		scan := database.NewScan(s.kind, inv.Photo(), inv.ImageURL(), res)
		if err := s.db.SaveScan(ctx, scan); err != nil {
			s.log.Warn("error saving scan", "image", path, "error", err)
		}
	}
	return out
}

// scanAll runs one invocation per image, at most parallel at a time. A
// failed image never stops the others; outcomes keep the input order.
func (s *scanner) scanAll(ctx context.Context, paths []string, pc *models.PipelineContext, parallel int) []format.Outcome {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]format.Outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = s.scanOne(ctx, path, pc)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// saveToGarden adds every identified plant. Failures are logged only.
func (a *app) saveToGarden(ctx context.Context, outcomes []format.Outcome, name string) {
	g, err := a.garden()
	if err != nil {
		a.logger.Warn("could not add plants to garden", "error", err)
		return
	}
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		plant := name
		if plant == "" {
			plant = o.Result.Name
		}
		if err := g.Add(ctx, plant); err != nil {
			a.logger.Warn("could not add plant to garden", "name", plant, "error", err)
			continue
		}
		a.logger.Info("plant added to garden", "name", plant)
	}
}

func failedCount(outcomes []format.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
