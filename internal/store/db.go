package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Thumb is one row of the thumbnail index: which source a cached image was
// derived from and the source state at derivation time.
type Thumb struct {
	SourcePath  string
	SourceMtime time.Time
	SourceSize  int64
	ThumbPath   string
	Width       int
	Height      int
	CreatedAt   time.Time
}

// Fresh reports whether the row still describes a source last modified at
// mtime. Sizes are compared only when both are known.
func (t Thumb) Fresh(mtime time.Time, size int64, sizeKnown bool) bool {
	if !t.SourceMtime.Equal(mtime) {
		return false
	}
	if sizeKnown && t.SourceSize >= 0 && t.SourceSize != size {
		return false
	}
	return true
}

// DB is the sqlite-backed thumbnail index stored next to the cache files.
type DB struct {
	conn *sql.DB
	path string
}

// Open initializes the database connection and schema.
func Open(ctx context.Context, dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New("store.open", dir, err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New("store.open", dbPath, err)
	}

	// Performance Tuning
	// WAL mode allows simultaneous readers and writers
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		// Synchronous NORMAL is safe against app crashes, faster than FULL
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, errors.New("store.open", dbPath, err)
		}
	}

	query := `
	CREATE TABLE IF NOT EXISTS thumbnails (
		source_path  TEXT PRIMARY KEY,
		source_mtime INTEGER NOT NULL,
		source_size  INTEGER NOT NULL DEFAULT -1,
		thumb_path   TEXT NOT NULL,
		width        INTEGER NOT NULL DEFAULT 0,
		height       INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL
	);
	`
	if _, err := conn.ExecContext(ctx, query); err != nil {
		conn.Close()
		return nil, errors.New("store.open", dbPath, err)
	}

	debug.Log(debug.STORE, "opened thumbnail index %q", dbPath)
	return &DB{conn: conn, path: dbPath}, nil
}

// Path returns the database file location.
func (d *DB) Path() string { return d.path }

// Lookup returns the index row for src. The error matches errors.ErrNotFound
// when no row exists.
func (d *DB) Lookup(ctx context.Context, src string) (Thumb, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT source_path, source_mtime, source_size, thumb_path, width, height, created_at
		 FROM thumbnails WHERE source_path = ?`, src)

	var t Thumb
	var mtime, created int64
	err := row.Scan(&t.SourcePath, &mtime, &t.SourceSize, &t.ThumbPath, &t.Width, &t.Height, &created)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Thumb{}, errors.Newf(errors.KindNotFound, "store.lookup", src, "no thumbnail row")
	}
	if err != nil {
		return Thumb{}, errors.New("store.lookup", src, err)
	}
	t.SourceMtime = fromNanos(mtime)
	t.CreatedAt = fromNanos(created)
	return t, nil
}

// Put inserts or replaces the row for t.SourcePath.
func (d *DB) Put(ctx context.Context, t Thumb) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := d.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO thumbnails
		 (source_path, source_mtime, source_size, thumb_path, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SourcePath, toNanos(t.SourceMtime), t.SourceSize, t.ThumbPath, t.Width, t.Height, toNanos(t.CreatedAt))
	if err != nil {
		return errors.New("store.put", t.SourcePath, err)
	}
	debug.Log(debug.STORE, "put %q -> %q (%dx%d)", t.SourcePath, t.ThumbPath, t.Width, t.Height)
	return nil
}

// Delete removes the row for src. Missing rows are not an error.
func (d *DB) Delete(ctx context.Context, src string) error {
	if _, err := d.conn.ExecContext(ctx, "DELETE FROM thumbnails WHERE source_path = ?", src); err != nil {
		return errors.New("store.delete", src, err)
	}
	debug.Log(debug.STORE, "delete %q", src)
	return nil
}

// All returns every row ordered by source path.
func (d *DB) All(ctx context.Context) ([]Thumb, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT source_path, source_mtime, source_size, thumb_path, width, height, created_at
		 FROM thumbnails ORDER BY source_path ASC`)
	if err != nil {
		return nil, errors.New("store.all", d.path, err)
	}
	defer rows.Close()

	var out []Thumb
	for rows.Next() {
		var t Thumb
		var mtime, created int64
		if err := rows.Scan(&t.SourcePath, &mtime, &t.SourceSize, &t.ThumbPath, &t.Width, &t.Height, &created); err != nil {
			return nil, errors.New("store.all", d.path, err)
		}
		t.SourceMtime = fromNanos(mtime)
		t.CreatedAt = fromNanos(created)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New("store.all", d.path, err)
	}
	return out, nil
}

// Count returns the number of indexed thumbnails.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM thumbnails").Scan(&n); err != nil {
		return 0, errors.New("store.count", d.path, err)
	}
	return n, nil
}

func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Unknown times are stored as 0; UnixNano of the zero Time overflows.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
