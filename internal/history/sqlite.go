package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/choicecert/certmill/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "history: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	artifact_ref TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "history: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, entry model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, name, artifact_ref, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Name, entry.ArtifactRef, string(entry.Status), entry.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "history: insert entry")
	}

	// Evict beyond the cap, oldest first.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, MaxEntries,
	)
	if err != nil {
		return eris.Wrap(err, "history: evict entries")
	}

	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, artifact_ref, status, created_at FROM history
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "history: query entries")
	}
	defer rows.Close() //nolint:errcheck

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var status string
		if err := rows.Scan(&e.ID, &e.Name, &e.ArtifactRef, &status, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "history: scan entry")
		}
		e.Status = model.HistoryStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "history: iterate entries")
	}

	return entries, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return eris.Wrap(err, "history: clear")
}
