package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"

	"memberdesk/internal/domain"
)

// Postgres persists collections in a single table, one row per name. The
// upsert is row-atomic: concurrent writers to the same collection serialize
// on the row, and a failed request never leaves a half-written blob.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres through the pgx stdlib driver and ensures the
// schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Postgres{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing handle; used by tests that manage the pool.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (s *Postgres) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS collections (
	name           TEXT PRIMARY KEY,
	data           JSONB NOT NULL DEFAULT '[]'::jsonb,
	schema_version INT NOT NULL DEFAULT 1,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate collections table: %w", err)
	}
	return nil
}

func (s *Postgres) Bootstrap(ctx context.Context) (map[domain.CollectionName][]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM collections`)
	if err != nil {
		return nil, fmt.Errorf("bootstrap collections: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CollectionName][]json.RawMessage, len(domain.AllCollections()))
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		cn := domain.CollectionName(name)
		if !domain.ValidName(cn) {
			continue
		}
		out[cn] = s.decodeBlob(cn, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection rows: %w", err)
	}
	// Never-written names still come back as empty sequences.
	for _, name := range domain.AllCollections() {
		if _, ok := out[name]; !ok {
			out[name] = []json.RawMessage{}
		}
	}
	return out, nil
}

func (s *Postgres) Get(ctx context.Context, name domain.CollectionName) ([]json.RawMessage, error) {
	if !domain.ValidName(name) {
		return nil, ErrUnknownCollection
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = $1`, string(name)).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return s.decodeBlob(name, blob), nil
}

func (s *Postgres) Put(ctx context.Context, name domain.CollectionName, records []json.RawMessage) error {
	if !domain.ValidName(name) {
		return ErrUnknownCollection
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", name, err)
	}
	const q = `
INSERT INTO collections (name, data, schema_version, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, string(name), blob, schemaVersion); err != nil {
		return fmt.Errorf("put collection %s: %w", name, err)
	}
	return nil
}

func (s *Postgres) Clear(ctx context.Context, name domain.CollectionName) error {
	return s.Put(ctx, name, nil)
}

func (s *Postgres) ImportBulk(ctx context.Context, collections map[domain.CollectionName][]json.RawMessage) error {
	names := make([]domain.CollectionName, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		if err := s.Put(ctx, name, collections[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

// decodeBlob parses a stored blob, treating malformed data as an empty
// sequence per the bootstrap contract.
func (s *Postgres) decodeBlob(name domain.CollectionName, blob []byte) []json.RawMessage {
	if len(blob) == 0 {
		return []json.RawMessage{}
	}
	var records []json.RawMessage
	if err := json.Unmarshal(blob, &records); err != nil {
		if s.logger != nil {
			s.logger.Warn("malformed collection blob, treating as empty",
				"collection", name.String(),
				"error", err.Error(),
			)
		}
		return []json.RawMessage{}
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records
}
