package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/franckalain/plantcare/internal/config"
	"github.com/franckalain/plantcare/internal/models"
)

//go:embed schema.sql schema_postgres.sql
var schemaFS embed.FS

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB interface defines the methods our scan history store should implement
type DB interface {
	SaveScan(ctx context.Context, scan *models.Scan) error
	GetScan(ctx context.Context, id string) (*models.Scan, error)
	RecentScans(ctx context.Context, limit int, filter models.ScanFilter) ([]*models.Scan, error)
	Close() error
}

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteDB(cfg.Path)
	case "postgres":
		return NewPostgresDB(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewScan pairs a classification result with the photo that produced it.
func NewScan(kind models.ScanKind, photo *models.CapturedPhoto, imageURL string, res *models.ClassificationResult) *models.Scan {
	scan := &models.Scan{
		ID:        uuid.New().String(),
		Kind:      kind,
		Name:      res.Name,
		Details:   res.Details,
		Health:    res.Health,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
	}
	if photo != nil {
		scan.PhotoURI = photo.URI
	}
	return scan
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under concurrent scans.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	// Initialize database schema
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	// Read schema file
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	// Execute schema
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}

	slog.Debug("database schema initialized", "driver", "sqlite")
	return nil
}

// SaveScan stores a completed scan
func (s *SQLiteDB) SaveScan(ctx context.Context, scan *models.Scan) error {
	query := `
		INSERT INTO scans (
			id, kind, name, details, health, healthy, image_url, photo_uri, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			details = excluded.details,
			health = excluded.health,
			healthy = excluded.healthy,
			image_url = excluded.image_url,
			photo_uri = excluded.photo_uri
	`

	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}

	var health sql.NullBool
	if scan.Health != nil {
		health = sql.NullBool{Bool: *scan.Health, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		scan.ID, string(scan.Kind), scan.Name, scan.Details, health, scan.Healthy(),
		scan.ImageURL, scan.PhotoURI, scan.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

const scanColumns = `id, kind, name, details, health, image_url, photo_uri, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*models.Scan, error) {
	var (
		scan      models.Scan
		kind      string
		health    sql.NullBool
		createdAt string
	)
	if err := row.Scan(&scan.ID, &kind, &scan.Name, &scan.Details, &health,
		&scan.ImageURL, &scan.PhotoURI, &createdAt); err != nil {
		return nil, err
	}
	scan.Kind = models.ScanKind(kind)
	if health.Valid {
		h := health.Bool
		scan.Health = &h
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	scan.CreatedAt = t
	return &scan, nil
}

// GetScan retrieves a scan by ID. It returns nil, nil when there is none.
func (s *SQLiteDB) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`

	scan, err := scanRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// RecentScans returns the newest scans first, optionally filtered by health.
func (s *SQLiteDB) RecentScans(ctx context.Context, limit int, filter models.ScanFilter) ([]*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans`
	args := []any{}
	switch filter {
	case models.FilterHealthy:
		query += ` WHERE healthy = ?`
		args = append(args, true)
	case models.FilterUnhealthy:
		query += ` WHERE healthy = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, scan)
	}
	return results, rows.Err()
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
