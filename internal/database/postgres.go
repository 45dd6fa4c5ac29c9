package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/franckalain/plantcare/internal/models"
)

// PostgresDB implements the DB interface on a pgx connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects to PostgreSQL and applies the schema
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	schemaBytes, err := schemaFS.ReadFile("schema_postgres.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(schemaBytes)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error executing schema: %w", err)
	}

	slog.Debug("database schema initialized", "driver", "postgres")
	return &PostgresDB{pool: pool}, nil
}

// SaveScan stores a completed scan
func (p *PostgresDB) SaveScan(ctx context.Context, scan *models.Scan) error {
	query := `
		INSERT INTO scans (
			id, kind, name, details, health, healthy, image_url, photo_uri, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			details = EXCLUDED.details,
			health = EXCLUDED.health,
			healthy = EXCLUDED.healthy,
			image_url = EXCLUDED.image_url,
			photo_uri = EXCLUDED.photo_uri
	`

	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}

	_, err := p.pool.Exec(ctx, query,
		scan.ID, string(scan.Kind), scan.Name, scan.Details, scan.Health, scan.Healthy(),
		scan.ImageURL, scan.PhotoURI, scan.CreatedAt,
	)
	return err
}

func scanPgRow(row pgx.Row) (*models.Scan, error) {
	var (
		scan models.Scan
		kind string
	)
	if err := row.Scan(&scan.ID, &kind, &scan.Name, &scan.Details, &scan.Health,
		&scan.ImageURL, &scan.PhotoURI, &scan.CreatedAt); err != nil {
		return nil, err
	}
	scan.Kind = models.ScanKind(kind)
	return &scan, nil
}

// GetScan retrieves a scan by ID. It returns nil, nil when there is none.
func (p *PostgresDB) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1`

	scan, err := scanPgRow(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// RecentScans returns the newest scans first, optionally filtered by health.
func (p *PostgresDB) RecentScans(ctx context.Context, limit int, filter models.ScanFilter) ([]*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans`
	args := []any{}
	switch filter {
	case models.FilterHealthy:
		query += ` WHERE healthy = $1`
		args = append(args, true)
	case models.FilterUnhealthy:
		query += ` WHERE healthy = $1`
		args = append(args, false)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.Scan
	for rows.Next() {
		scan, err := scanPgRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, scan)
	}
	return results, rows.Err()
}

// Close closes the connection pool
func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}
