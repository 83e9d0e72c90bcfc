package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/shelf/internal/errors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), ".thumbnails", "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutLookup(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	mtime := time.Unix(1700000000, 123456789)
	want := Thumb{
		SourcePath:  "/photos/a.jpg",
		SourceMtime: mtime,
		SourceSize:  4096,
		ThumbPath:   "/photos/.thumbnails/a.jpg.thumb.jpg",
		Width:       200,
		Height:      150,
	}
	if err := db.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := db.Lookup(ctx, want.SourcePath)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.SourceMtime.Equal(mtime) {
		t.Errorf("mtime lost precision: got %v, want %v", got.SourceMtime, mtime)
	}
	if got.ThumbPath != want.ThumbPath || got.Width != 200 || got.Height != 150 || got.SourceSize != 4096 {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestPutLookup_UnknownMtime(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	row := Thumb{SourcePath: "/photos/c.png", SourceSize: -1, ThumbPath: "/photos/.thumbnails/c.png.thumb.jpg"}
	if err := db.Put(ctx, row); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := db.Lookup(ctx, row.SourcePath)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.SourceMtime.IsZero() {
		t.Errorf("unknown mtime read back as %v", got.SourceMtime)
	}
	if !got.Fresh(time.Time{}, 0, false) {
		t.Error("row with unknown mtime should stay fresh for an unchanged source")
	}

	all, err := db.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || !all[0].SourceMtime.IsZero() {
		t.Errorf("All = %+v", all)
	}
}

func TestLookupMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Lookup(context.Background(), "/nope.jpg")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	row := Thumb{SourcePath: "/p/b.png", SourceMtime: time.Unix(10, 0), ThumbPath: "/p/.thumbnails/b.png.thumb.jpg"}
	if err := db.Put(ctx, row); err != nil {
		t.Fatal(err)
	}
	row.SourceMtime = time.Unix(20, 0)
	if err := db.Put(ctx, row); err != nil {
		t.Fatal(err)
	}

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after replace, got %d", n)
	}

	got, err := db.Lookup(ctx, row.SourcePath)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceMtime.Unix() != 20 {
		t.Errorf("expected replaced mtime, got %v", got.SourceMtime)
	}

	if err := db.Delete(ctx, row.SourcePath); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(ctx, row.SourcePath); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	all, err := db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty index, got %d rows", len(all))
	}
}

func TestThumbFresh(t *testing.T) {
	mtime := time.Unix(100, 5)
	row := Thumb{SourceMtime: mtime, SourceSize: 42}

	testCases := []struct {
		name      string
		mtime     time.Time
		size      int64
		sizeKnown bool
		want      bool
	}{
		{"same", mtime, 42, true, true},
		{"newer source", mtime.Add(time.Second), 42, true, false},
		{"size changed", mtime, 43, true, false},
		{"size unknown", mtime, 0, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := row.Fresh(tc.mtime, tc.size, tc.sizeKnown); got != tc.want {
				t.Errorf("Fresh = %v, want %v", got, tc.want)
			}
		})
	}
}
