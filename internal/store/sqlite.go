package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id            TEXT PRIMARY KEY,
	query         TEXT NOT NULL,
	mode          TEXT NOT NULL DEFAULT 'direct',
	file_name     TEXT NOT NULL DEFAULT '',
	results_count INTEGER NOT NULL DEFAULT 0,
	is_favorite   INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_results (
	id        TEXT PRIMARY KEY,
	search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	record    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_searches_favorite ON searches(is_favorite);
CREATE INDEX IF NOT EXISTS idx_search_results_search_id ON search_results(search_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSearch(ctx context.Context, rec model.SearchRecord) (*model.SearchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Mode == "" {
		rec.Mode = model.SearchModeDirect
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, mode, file_name, results_count, is_favorite, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, string(rec.Mode), rec.FileName, rec.ResultsCount, boolToInt(rec.IsFavorite), rec.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}
	return &rec, nil
}

func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*model.SearchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, mode, file_name, results_count, is_favorite, created_at FROM searches WHERE id = ?`,
		id,
	)
	return scanSearch(row)
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.SearchRecord, error) {
	query := `SELECT id, query, mode, file_name, results_count, is_favorite, created_at FROM searches WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite = 1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var recs []model.SearchRecord
	for rows.Next() {
		r, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET is_favorite = 1 - is_favorite WHERE id = ?`,
		id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: toggle favorite %s", id)
	}
	if err := checkRowsAffected(res, "search", id); err != nil {
		return false, err
	}

	var fav int
	if err := s.db.QueryRowContext(ctx, `SELECT is_favorite FROM searches WHERE id = ?`, id).Scan(&fav); err != nil {
		return false, eris.Wrapf(err, "sqlite: read favorite %s", id)
	}
	return fav == 1, nil
}

func (s *SQLiteStore) DeleteSearch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete search %s", id)
	}
	return checkRowsAffected(res, "search", id)
}

func (s *SQLiteStore) ClearHistory(ctx context.Context, keepFavorites bool) (int, error) {
	query := `DELETE FROM searches`
	if keepFavorites {
		query += ` WHERE is_favorite = 0`
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear history")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, searchID string, records []model.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO search_results (id, search_id, position, record) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert result")
	}
	defer stmt.Close()

	for i, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal record")
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), searchID, i, string(recordJSON)); err != nil {
			return eris.Wrapf(err, "sqlite: insert result for search %s", searchID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

func (s *SQLiteStore) GetResults(ctx context.Context, searchID string) ([]model.BusinessRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM search_results WHERE search_id = ? ORDER BY position`,
		searchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get results for search %s", searchID)
	}
	defer rows.Close()

	var records []model.BusinessRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var rec model.BusinessRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: get results iterate")
}

func (s *SQLiteStore) SaveCredentials(ctx context.Context, creds model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal credentials")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save credentials")
}

func (s *SQLiteStore) GetCredentials(ctx context.Context) (*model.Credentials, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM credentials WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get credentials")
	}

	var creds model.Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal credentials")
	}
	return &creds, nil
}

func (s *SQLiteStore) DeleteCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`)
	return eris.Wrap(err, "sqlite: delete credentials")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*model.SearchRecord, error) {
	var r model.SearchRecord
	var mode string
	var fav int

	err := row.Scan(&r.ID, &r.Query, &mode, &r.FileName, &r.ResultsCount, &fav, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, eris.New("search not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan search")
	}

	r.Mode = model.SearchMode(mode)
	r.IsFavorite = fav == 1
	return &r, nil
}
