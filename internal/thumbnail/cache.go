// Package thumbnail derives bounded JPEG previews of source images and keeps
// them under a hidden directory of the scanned root.
//
// A cached file is valid while the source's last-write time matches the one
// recorded in the SQLite index next to it. Without an index row, a cache file
// that is not older than its source is adopted, so deleting index.db never
// forces a full rebuild.
package thumbnail

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/logging"
	"github.com/justyntemme/shelf/internal/metrics"
	"github.com/justyntemme/shelf/internal/store"
)

const (
	DefaultDirName  = ".thumbnails"
	DefaultWidth    = 200
	DefaultHeight   = 200
	DefaultQuality  = 85
	DefaultMemoSize = 512

	indexFile   = "index.db"
	thumbSuffix = ".thumb.jpg"
)

// Options configures a Cache. Zero values select the defaults above.
type Options struct {
	DirName  string
	Width    int
	Height   int
	Quality  int
	MemoSize int
	Accessor fs.Accessor
}

func (o Options) withDefaults() Options {
	if o.DirName == "" {
		o.DirName = DefaultDirName
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MemoSize == 0 {
		o.MemoSize = DefaultMemoSize
	}
	if o.Accessor == nil {
		o.Accessor = fs.NewAccessor()
	}
	return o
}

// Cache derives and serves thumbnails for the images under one root.
// It is safe for concurrent use.
type Cache struct {
	root string
	dir  string
	opts Options

	group singleflight.Group
	memo  *memo

	dbMu sync.Mutex
	db   *store.DB
}

// NewCache returns a cache rooted at root. Nothing touches the disk until
// the first request.
func NewCache(root string, opts Options) *Cache {
	opts = opts.withDefaults()
	return &Cache{
		root: root,
		dir:  filepath.Join(root, opts.DirName),
		opts: opts,
		memo: newMemo(opts.MemoSize),
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

var (
	nameEscaper   = strings.NewReplacer("%", "%25", "/", "%2F")
	nameUnescaper = strings.NewReplacer("%2F", "/", "%25", "%")
)

// PathFor returns where the thumbnail of src is stored. The name is the
// root-relative path of src with separators escaped, so a/x.png and b/x.png
// never share a file; sources directly under the root keep their base name.
// Sources outside the root are named by their escaped absolute path.
func (c *Cache) PathFor(src string) string {
	key := filepath.Clean(src)
	if rel, err := filepath.Rel(c.root, key); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		key = rel
	}
	return filepath.Join(c.dir, nameEscaper.Replace(filepath.ToSlash(key))+thumbSuffix)
}

// sourceFor maps a cache file name back to the source it was derived from.
func (c *Cache) sourceFor(name string) string {
	key := filepath.FromSlash(nameUnescaper.Replace(strings.TrimSuffix(name, thumbSuffix)))
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(c.root, key)
}

// GetOrCreate returns the thumbnail path for src, generating it when there is
// no valid cached copy. Concurrent calls for the same source share one
// generation. Undecodable sources fail with kind Corrupt.
func (c *Cache) GetOrCreate(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err, shared := c.group.Do(src, func() (interface{}, error) {
		return c.getOrCreate(ctx, src)
	})
	if err != nil {
		return "", err
	}
	if shared {
		debug.Log(debug.THUMB, "coalesced request for %s", src)
	}
	return v.(string), nil
}

func (c *Cache) getOrCreate(ctx context.Context, src string) (string, error) {
	meta := c.opts.Accessor.Stat(src)
	if !meta.Known() {
		metrics.RecordThumbnailError()
		return "", errors.New("thumbnail", src, meta.Err)
	}
	if meta.IsDir() {
		metrics.RecordThumbnailError()
		return "", errors.Newf(errors.KindInvalid, "thumbnail", src, "is a directory")
	}

	thumb := c.PathFor(src)
	if c.valid(ctx, src, thumb, meta) {
		debug.Log(debug.THUMB, "hit %s", src)
		metrics.RecordThumbnailHit()
		return thumb, nil
	}

	start := time.Now()
	w, h, err := c.generate(src, thumb)
	if err != nil {
		metrics.RecordThumbnailError()
		return "", err
	}
	elapsed := time.Since(start)
	metrics.RecordThumbnailGenerated(elapsed)
	debug.Log(debug.THUMB, "generated %s (%dx%d) in %v", thumb, w, h, elapsed)

	c.record(ctx, store.Thumb{
		SourcePath:  src,
		SourceMtime: meta.Modified,
		SourceSize:  sizeOrUnknown(meta),
		ThumbPath:   thumb,
		Width:       w,
		Height:      h,
	})
	return thumb, nil
}

// valid reports whether thumb can be served for src as it is now.
func (c *Cache) valid(ctx context.Context, src, thumb string, meta fs.Metadata) bool {
	info, err := os.Stat(thumb)
	if err != nil {
		return false
	}

	if row, ok := c.lookup(ctx, src); ok {
		return row.ThumbPath == thumb && row.Fresh(meta.Modified, meta.Size, meta.SizeKnown)
	}

	// No index row: adopt a file written after the source's last change.
	if meta.Modified.IsZero() || info.ModTime().Before(meta.Modified) {
		return false
	}
	row := store.Thumb{
		SourcePath:  src,
		SourceMtime: meta.Modified,
		SourceSize:  sizeOrUnknown(meta),
		ThumbPath:   thumb,
	}
	if f, err := os.Open(thumb); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			row.Width, row.Height = cfg.Width, cfg.Height
		}
		f.Close()
	}
	debug.Log(debug.THUMB, "adopting unindexed %s", thumb)
	c.record(ctx, row)
	return true
}

// generate decodes src, fits it into the target box and writes dst.
func (c *Cache) generate(src, dst string) (int, int, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, errors.New("thumbnail", src, err)
	}

	img, err := decode(src, data)
	if err != nil {
		return 0, 0, &errors.Error{Op: "thumbnail", Path: src, Kind: errors.KindCorrupt, Err: err}
	}
	img = applyOrientation(img, orientation(data))

	// Fit never upscales; the scale is min(w/srcW, h/srcH).
	fitted := imaging.Fit(img, c.opts.Width, c.opts.Height, imaging.Lanczos)
	b := fitted.Bounds()

	// JPEG has no alpha; flatten transparent screenshots onto white.
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, fitted, image.Pt(0, 0), 1.0)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return 0, 0, errors.New("thumbnail", c.dir, err)
	}
	tmp, err := os.CreateTemp(c.dir, ".tmp-*.jpg")
	if err != nil {
		return 0, 0, errors.New("thumbnail", c.dir, err)
	}
	tmpName := tmp.Name()
	if err := jpeg.Encode(tmp, flat, &jpeg.Options{Quality: c.opts.Quality}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, 0, errors.New("thumbnail", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, 0, errors.New("thumbnail", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return 0, 0, errors.New("thumbnail", dst, err)
	}
	return b.Dx(), b.Dy(), nil
}

// Remove deletes the thumbnail and index row of src. A missing thumbnail is
// not an error.
func (c *Cache) Remove(ctx context.Context, src string) error {
	c.memo.remove(src)

	thumb := c.PathFor(src)
	if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
		return errors.New("thumbnail.remove", thumb, err)
	}

	if _, err := os.Stat(c.dir); err != nil {
		return nil
	}
	db, err := c.index(ctx)
	if err != nil {
		logging.Warn("thumbnail index unavailable", logging.String("root", c.root), logging.Err(err))
		return nil
	}
	if err := db.Delete(ctx, src); err != nil {
		logging.Warn("failed to drop thumbnail row", logging.String("source", src), logging.Err(err))
	}
	debug.Log(debug.THUMB, "removed %s", thumb)
	return nil
}

// Prune removes thumbnails whose source no longer exists and returns how
// many were removed. It is never run automatically.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return 0, nil
	}
	db, err := c.index(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := db.All(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	indexed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		indexed[row.ThumbPath] = true
		if _, err := os.Stat(row.SourcePath); !os.IsNotExist(err) {
			continue
		}
		if err := c.Remove(ctx, row.SourcePath); err != nil {
			return removed, err
		}
		removed++
	}

	// Files without a row are mapped back to the source their name encodes.
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return removed, errors.New("thumbnail.prune", c.dir, err)
	}
	for _, de := range dirEntries {
		name := de.Name()
		path := filepath.Join(c.dir, name)
		if de.IsDir() || !strings.HasSuffix(name, thumbSuffix) || indexed[path] {
			continue
		}
		src := c.sourceFor(name)
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, errors.New("thumbnail.prune", path, err)
		}
		removed++
	}

	logging.Info("pruned thumbnails", logging.String("root", c.root), logging.Int("removed", removed))
	return removed, nil
}

// Close releases the index database.
func (c *Cache) Close() error {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// index opens the SQLite index on first use.
func (c *Cache) index(ctx context.Context) (*store.DB, error) {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := store.Open(ctx, filepath.Join(c.dir, indexFile))
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *Cache) lookup(ctx context.Context, src string) (store.Thumb, bool) {
	if row, ok := c.memo.get(src); ok {
		return row, true
	}
	db, err := c.index(ctx)
	if err != nil {
		logging.Warn("thumbnail index unavailable", logging.String("root", c.root), logging.Err(err))
		return store.Thumb{}, false
	}
	row, err := db.Lookup(ctx, src)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			logging.Warn("thumbnail lookup failed", logging.String("source", src), logging.Err(err))
		}
		return store.Thumb{}, false
	}
	c.memo.put(row)
	return row, true
}

func (c *Cache) record(ctx context.Context, row store.Thumb) {
	c.memo.put(row)
	db, err := c.index(ctx)
	if err != nil {
		logging.Warn("thumbnail index unavailable", logging.String("root", c.root), logging.Err(err))
		return
	}
	if err := db.Put(ctx, row); err != nil {
		logging.Warn("failed to record thumbnail", logging.String("source", row.SourcePath), logging.Err(err))
	}
}

func sizeOrUnknown(m fs.Metadata) int64 {
	if !m.SizeKnown {
		return -1
	}
	return m.Size
}
