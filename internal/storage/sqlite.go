package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS apps (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	layout     TEXT NOT NULL DEFAULT '{}',
	pages      TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_apps_updated_at ON apps(updated_at);
`

const selectColumns = `SELECT id, name, domain, created_at, updated_at, layout, pages FROM apps`

// SQLite implements Store on a single SQLite database file.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	o := buildOptions(opts)
	return &SQLite{conn: conn, now: o.now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Create implements Store.
func (s *SQLite) Create(ctx context.Context, name string) (*models.Blueprint, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT name FROM apps`)
	if err != nil {
		return nil, fmt.Errorf("storage: list names: %w", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage: scan name: %w", err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list names: %w", err)
	}

	b := newBlueprint(name, names, s.now().UTC())
	if err := upsert(ctx, tx, &b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit: %w", err)
	}
	return &b, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id string) (*models.Blueprint, error) {
	b, err := scanBlueprint(s.conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if heal(b, s.now().UTC()) {
		if err := upsert(ctx, s.conn, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, id string, p models.Patch) (*models.Blueprint, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := scanBlueprint(tx.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	p.Apply(b)
	b.UpdatedAt = s.now().UTC()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("storage: update %s: %w: %v", id, apperr.ErrInvalidInput, err)
	}
	if err := upsert(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit: %w", err)
	}
	return b, nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context) ([]models.Blueprint, error) {
	rows, err := s.conn.QueryContext(ctx, selectColumns)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	defer rows.Close()

	var out []models.Blueprint
	for rows.Next() {
		b, err := scanBlueprint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	// Timestamps are compared as instants, not as stored text.
	sortByUpdated(out)
	return out, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func upsert(ctx context.Context, db execer, b *models.Blueprint) error {
	layout, err := json.Marshal(b.Layout)
	if err != nil {
		return fmt.Errorf("storage: encode layout: %w", err)
	}
	pages, err := json.Marshal(b.Pages)
	if err != nil {
		return fmt.Errorf("storage: encode pages: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO apps (id, name, domain, created_at, updated_at, layout, pages)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			domain     = excluded.domain,
			updated_at = excluded.updated_at,
			layout     = excluded.layout,
			pages      = excluded.pages
	`, b.ID, b.Name, b.Domain,
		b.CreatedAt.Format(time.RFC3339Nano), b.UpdatedAt.Format(time.RFC3339Nano),
		string(layout), string(pages))
	if err != nil {
		return fmt.Errorf("storage: upsert %s: %w", b.ID, err)
	}
	return nil
}

func scanBlueprint(row scanner) (*models.Blueprint, error) {
	var (
		b                    models.Blueprint
		created, updated     string
		layoutJSON, pageJSON string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Domain, &created, &updated, &layoutJSON, &pageJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: scan: %w", err)
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("storage: parse created_at for %s: %w", b.ID, err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("storage: parse updated_at for %s: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(layoutJSON), &b.Layout); err != nil {
		return nil, fmt.Errorf("storage: decode layout for %s: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(pageJSON), &b.Pages); err != nil {
		return nil, fmt.Errorf("storage: decode pages for %s: %w", b.ID, err)
	}
	return &b, nil
}
