package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"brevio/pkg/logger"
	"brevio/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const DefaultMigrationsDir = "migrations"

// ErrNotFound is returned when a request id has no journal record.
var ErrNotFound = errors.New("summary request not found")

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to PostgreSQL and applies pending migrations.
func NewPostgresStorage(ctx context.Context, databaseURL, migrationsDir string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := RunMigrations(databaseURL, migrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// RunMigrations applies all pending up migrations.
func RunMigrations(databaseURL, migrationsDir string) error {
	m, closeDB, err := newMigrator(databaseURL, migrationsDir)
	if err != nil {
		return err
	}
	defer closeDB()
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// ResetMigrations drops all tables and re-runs migrations (for development)
func ResetMigrations(databaseURL, migrationsDir string) error {
	logger.Warn("Resetting database - this will drop all data!")

	m, closeDB, err := newMigrator(databaseURL, migrationsDir)
	if err != nil {
		return err
	}
	defer closeDB()
	defer m.Close()

	if err := m.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}

	logger.Info("Database dropped successfully")

	// Drop also removes the version table; start from a fresh instance.
	m2, closeDB2, err := newMigrator(databaseURL, migrationsDir)
	if err != nil {
		return err
	}
	defer closeDB2()
	defer m2.Close()

	if err := m2.Up(); err != nil {
		return fmt.Errorf("failed to run migrations after reset: %w", err)
	}

	logger.Info("Database reset and migrations applied successfully")
	return nil
}

func newMigrator(databaseURL, migrationsDir string) (*migrate.Migrate, func(), error) {
	sourceURL, err := migrationsURL(migrationsDir)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Running migrations", zap.String("path", sourceURL))

	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { db.Close() }, nil
}

func migrationsURL(dir string) (string, error) {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get migrations path: %w", err)
	}

	if runtime.GOOS == "windows" {
		u := &url.URL{
			Scheme: "file",
			Path:   filepath.ToSlash(abs),
		}
		return u.String(), nil
	}
	return "file://" + abs, nil
}

// Close closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// CreateRequest inserts a new journal record
func (s *PostgresStorage) CreateRequest(ctx context.Context, req *model.SummaryRequest) error {
	query := `
		INSERT INTO summary_requests (
			id, source_url, status, error_kind, error_text,
			audio_duration_seconds, meta, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := s.pool.Exec(ctx, query,
		req.ID,
		req.SourceURL,
		req.Status,
		req.ErrorKind,
		req.ErrorText,
		req.AudioDurationSeconds,
		req.Meta,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create summary request: %w", err)
	}

	return nil
}

// GetRequestByID retrieves a journal record by its ID
func (s *PostgresStorage) GetRequestByID(ctx context.Context, id string) (*model.SummaryRequest, error) {
	query := `
		SELECT id, source_url, status, error_kind, error_text,
		       audio_duration_seconds, meta, created_at, updated_at
		FROM summary_requests
		WHERE id = $1`

	var req model.SummaryRequest
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.SourceURL,
		&req.Status,
		&req.ErrorKind,
		&req.ErrorText,
		&req.AudioDurationSeconds,
		&req.Meta,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get summary request: %w", err)
	}

	return &req, nil
}

// UpdateRequest writes the status, outcome and duration of a journal record
func (s *PostgresStorage) UpdateRequest(ctx context.Context, req *model.SummaryRequest) error {
	query := `
		UPDATE summary_requests
		SET status = $2, error_kind = $3, error_text = $4,
		    audio_duration_seconds = $5, meta = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		req.ID,
		req.Status,
		req.ErrorKind,
		req.ErrorText,
		req.AudioDurationSeconds,
		req.Meta,
		req.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update summary request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
