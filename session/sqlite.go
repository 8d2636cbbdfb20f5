package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	name       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	version    INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	saved_at   TEXT NOT NULL,
	data       BLOB NOT NULL
)`

// SQLiteCatalog keeps the latest snapshot of every name in one SQLite table.
// Saving an existing name replaces it and bumps its version.
type SQLiteCatalog struct {
	db   *sql.DB
	opts options
}

// OpenSQLiteCatalog opens or creates the catalog database at path.
// Use ":memory:" for a private in-memory catalog.
func OpenSQLiteCatalog(path string, optFns ...Option) (*SQLiteCatalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &SQLiteCatalog{db: db, opts: applyOptions(optFns)}, nil
}

// Close closes the database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Save inserts or replaces the snapshot stored under snap.Name.
func (c *SQLiteCatalog) Save(ctx context.Context, snap *Snapshot) (Info, error) {
	if err := snap.Validate(); err != nil {
		return Info{}, err
	}
	data, err := Encode(snap, c.opts.codec, c.opts.compression)
	if err != nil {
		return Info{}, err
	}

	var version uint64
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO sessions (name, id, version, created_at, saved_at, data)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			version = sessions.version + 1,
			created_at = excluded.created_at,
			saved_at = excluded.saved_at,
			data = excluded.data
		RETURNING version`,
		snap.Name, snap.ID.String(), snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano), data,
	).Scan(&version)
	if err != nil {
		return Info{}, fmt.Errorf("save session %q: %w", snap.Name, err)
	}
	return Info{
		Name:      snap.Name,
		ID:        snap.ID,
		Version:   version,
		CreatedAt: snap.CreatedAt,
		Size:      int64(len(data)),
	}, nil
}

// Load decodes the snapshot stored under name.
func (c *SQLiteCatalog) Load(ctx context.Context, name string) (*Snapshot, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", name, err)
	}
	snap, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode session %q: %w", name, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("validate session %q: %w", name, err)
	}
	return snap, nil
}

// List returns the stored sessions sorted by name.
func (c *SQLiteCatalog) List(ctx context.Context) ([]Info, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, id, version, created_at, length(data)
		FROM sessions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []Info
	for rows.Next() {
		var (
			info      Info
			id        string
			createdAt string
		)
		if err := rows.Scan(&info.Name, &id, &info.Version, &createdAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session %q has invalid id: %w", info.Name, err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("session %q has invalid timestamp: %w", info.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the snapshot stored under name.
func (c *SQLiteCatalog) Delete(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
