// Package archive persists scrape snapshots to PostgreSQL so tender
// history survives cache eviction and restarts.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

// ErrNoSnapshot is returned when a source has never been archived.
var ErrNoSnapshot = errors.New("no snapshot archived for source")

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// NewPostgresConnection opens and ping-verifies a PostgreSQL connection.
func NewPostgresConnection(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// Snapshot is one archived scrape result.
type Snapshot struct {
	ID          string          `db:"id"`
	SourceID    string          `db:"source_id"`
	TenderCount int             `db:"tender_count"`
	Records     json.RawMessage `db:"records"`
	ScrapedAt   time.Time       `db:"scraped_at"`
}

// Tenders decodes the snapshot's record payload.
func (s *Snapshot) Tenders() ([]tender.Record, error) {
	var records []tender.Record
	if err := json.Unmarshal(s.Records, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
	}
	return records, nil
}

// Repository handles snapshot persistence.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a snapshot repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the snapshot table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS tender_snapshots (
			id UUID PRIMARY KEY,
			source_id TEXT NOT NULL,
			tender_count INTEGER NOT NULL,
			records JSONB NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_tender_snapshots_source_scraped
			ON tender_snapshots (source_id, scraped_at DESC);
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return nil
}

// Store archives one scrape result. It satisfies the orchestrator's sink
// contract, so every successful scheduled scrape lands here.
func (r *Repository) Store(ctx context.Context, src sources.Source, records []tender.Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records for %s: %w", src.ID, err)
	}

	query := `
		INSERT INTO tender_snapshots (id, source_id, tender_count, records, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		uuid.New().String(),
		src.ID,
		len(records),
		payload,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to archive snapshot for %s: %w", src.ID, err)
	}
	return nil
}

// Latest returns the most recent snapshot for a source.
func (r *Repository) Latest(ctx context.Context, sourceID string) (*Snapshot, error) {
	var snapshot Snapshot
	query := `
		SELECT id, source_id, tender_count, records, scraped_at
		FROM tender_snapshots
		WHERE source_id = $1
		ORDER BY scraped_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &snapshot, query, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load latest snapshot for %s: %w", sourceID, err)
	}

	return &snapshot, nil
}

// History lists snapshot metadata for a source, newest first. Record
// payloads are omitted to keep the listing cheap.
func (r *Repository) History(ctx context.Context, sourceID string, limit int) ([]Snapshot, error) {
	if limit < 1 {
		limit = 20
	}

	var snapshots []Snapshot
	query := `
		SELECT id, source_id, tender_count, '[]'::jsonb AS records, scraped_at
		FROM tender_snapshots
		WHERE source_id = $1
		ORDER BY scraped_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &snapshots, query, sourceID, limit); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", sourceID, err)
	}
	return snapshots, nil
}

// Prune deletes snapshots older than the retention window and returns the
// number removed.
func (r *Repository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	query := `DELETE FROM tender_snapshots WHERE scraped_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	return removed, nil
}
