package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_search":   `INSERT INTO searches (id, query, mode, file_name, results_count, is_favorite, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_search":      `SELECT id, query, mode, file_name, results_count, is_favorite, created_at FROM searches WHERE id = $1`,
	"toggle_favorite": `UPDATE searches SET is_favorite = NOT is_favorite WHERE id = $1 RETURNING is_favorite`,
	"delete_search":   `DELETE FROM searches WHERE id = $1`,
	"get_results":     `SELECT record FROM search_results WHERE search_id = $1 ORDER BY position`,
	"get_credentials": `SELECT data FROM credentials WHERE id = 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query         TEXT NOT NULL,
	mode          TEXT NOT NULL DEFAULT 'direct',
	file_name     TEXT NOT NULL DEFAULT '',
	results_count INTEGER NOT NULL DEFAULT 0,
	is_favorite   BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_results (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	record    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_searches_favorite ON searches(is_favorite);
CREATE INDEX IF NOT EXISTS idx_search_results_search_id ON search_results(search_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSearch(ctx context.Context, rec model.SearchRecord) (*model.SearchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Mode == "" {
		rec.Mode = model.SearchModeDirect
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, query, mode, file_name, results_count, is_favorite, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Query, string(rec.Mode), rec.FileName, rec.ResultsCount, rec.IsFavorite, rec.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}
	return &rec, nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, id string) (*model.SearchRecord, error) {
	var r model.SearchRecord
	var mode string

	err := s.pool.QueryRow(ctx,
		`SELECT id, query, mode, file_name, results_count, is_favorite, created_at FROM searches WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Query, &mode, &r.FileName, &r.ResultsCount, &r.IsFavorite, &r.Timestamp)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get search %s", id)
	}

	r.Mode = model.SearchMode(mode)
	return &r, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.SearchRecord, error) {
	query := `SELECT id, query, mode, file_name, results_count, is_favorite, created_at FROM searches WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var recs []model.SearchRecord
	for rows.Next() {
		var r model.SearchRecord
		var mode string
		if err := rows.Scan(&r.ID, &r.Query, &mode, &r.FileName, &r.ResultsCount, &r.IsFavorite, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		r.Mode = model.SearchMode(mode)
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var fav bool
	err := s.pool.QueryRow(ctx,
		`UPDATE searches SET is_favorite = NOT is_favorite WHERE id = $1 RETURNING is_favorite`,
		id,
	).Scan(&fav)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, eris.Errorf("search not found: %s", id)
		}
		return false, eris.Wrapf(err, "postgres: toggle favorite %s", id)
	}
	return fav, nil
}

func (s *PostgresStore) DeleteSearch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM searches WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete search %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ClearHistory(ctx context.Context, keepFavorites bool) (int, error) {
	query := `DELETE FROM searches`
	if keepFavorites {
		query += ` WHERE NOT is_favorite`
	}
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear history")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, searchID string, records []model.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal record")
		}
		rows = append(rows, []any{uuid.New().String(), searchID, i, recordJSON})
	}

	_, err := db.CopyRows(ctx, s.pool, "search_results",
		[]string{"id", "search_id", "position", "record"}, rows)
	return eris.Wrapf(err, "postgres: save results for search %s", searchID)
}

func (s *PostgresStore) GetResults(ctx context.Context, searchID string) ([]model.BusinessRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM search_results WHERE search_id = $1 ORDER BY position`,
		searchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get results for search %s", searchID)
	}
	defer rows.Close()

	var records []model.BusinessRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var rec model.BusinessRecord
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: get results iterate")
}

func (s *PostgresStore) SaveCredentials(ctx context.Context, creds model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal credentials")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO credentials (id, data, updated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = $1, updated_at = $2`,
		data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save credentials")
}

func (s *PostgresStore) GetCredentials(ctx context.Context) (*model.Credentials, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM credentials WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get credentials")
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal credentials")
	}
	return &creds, nil
}

func (s *PostgresStore) DeleteCredentials(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM credentials WHERE id = 1`)
	return eris.Wrap(err, "postgres: delete credentials")
}
