// Package history keeps past word-cloud reports: snapshots in PostgreSQL and
// "cloud generated" events on Kafka.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS cloud_snapshots (
    id           BIGSERIAL PRIMARY KEY,
    profile      TEXT        NOT NULL,
    word_count   INTEGER     NOT NULL,
    fallback     BOOLEAN     NOT NULL DEFAULT FALSE,
    data         JSONB       NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const schemaIndex = `CREATE INDEX IF NOT EXISTS cloud_snapshots_generated_at_idx
    ON cloud_snapshots (generated_at DESC)`

// DefaultListLimit and MaxListLimit bound ListSnapshots.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Snapshot is one stored report.
type Snapshot struct {
	ID          int64         `json:"id"`
	Profile     string        `json:"profile"`
	WordCount   int           `json:"word_count"`
	Fallback    bool          `json:"fallback"`
	GeneratedAt time.Time     `json:"generated_at"`
	Report      *trend.Report `json:"report"`
}

// Store persists reports in the cloud_snapshots table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "snapshot-store"),
	}
}

// EnsureSchema creates the snapshot table and index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, schema, schemaIndex); err != nil {
		return fmt.Errorf("ensuring snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores r. It satisfies trend.SnapshotStore.
func (s *Store) SaveSnapshot(ctx context.Context, r *trend.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	generatedAt := r.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO cloud_snapshots (profile, word_count, fallback, data, generated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.Profile, len(r.Words), r.Fallback, data, generatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		"profile", r.Profile,
		"words", len(r.Words),
		"fallback", r.Fallback,
	)
	return nil
}

// LatestSnapshot loads the newest report. It returns nil, nil when the table
// is empty.
func (s *Store) LatestSnapshot(ctx context.Context) (*trend.Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM cloud_snapshots ORDER BY generated_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var r trend.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &r, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows whose JSON
// cannot be decoded are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	limit = ClampLimit(limit)
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, profile, word_count, fallback, generated_at, data
		 FROM cloud_snapshots ORDER BY generated_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap Snapshot
			data []byte
		)
		if err := rows.Scan(&snap.ID, &snap.Profile, &snap.WordCount, &snap.Fallback, &snap.GeneratedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var r trend.Report
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "id", snap.ID, "error", err)
			continue
		}
		snap.Report = &r
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ClampLimit applies the default and maximum list sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
