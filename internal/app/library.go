package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fileops"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/logging"
	"github.com/justyntemme/shelf/internal/search"
	"github.com/justyntemme/shelf/internal/thumbnail"
	"github.com/justyntemme/shelf/internal/view"
)

// Library names
const (
	Photos = "photos"
	Files  = "files"
)

// LibraryOptions configures one Library.
type LibraryOptions struct {
	Name       string
	Root       string
	Extensions *catalog.ExtFilter // nil allows everything
	Order      catalog.Order
	View       view.Config

	// Thumbnails enables previews; ThumbnailOptions.DirName is always
	// skipped by the scanner and protected from mutations.
	Thumbnails       bool
	ThumbnailOptions thumbnail.Options

	MaxDepth     int
	ShowDotfiles bool
	Workers      int
	Timeout      time.Duration
	Accessor     fs.Accessor
	Progress     catalog.Progress
}

// Library owns the catalog, view and mutator of one root. Scans and
// mutations are serialized; a mutation always completes before the rescan
// it triggers.
type Library struct {
	name string
	root string
	ext  *catalog.ExtFilter

	mu       sync.Mutex
	scanner  *catalog.Scanner
	view     *view.View
	mutator  *fileops.Mutator
	thumbs   *thumbnail.Cache // nil when previews are disabled
	accessor fs.Accessor
}

// EntryInfo is the detail view of one entry.
type EntryInfo struct {
	catalog.Entry
	Source fs.Source            // which metadata facility answered
	Image  *thumbnail.ImageInfo // nil unless the entry is a readable image
}

// NewLibrary wires a scanner, view and mutator for opts.Root. The root is
// created on the first scan or mutation, not here.
func NewLibrary(opts LibraryOptions) *Library {
	topts := opts.ThumbnailOptions
	if topts.DirName == "" {
		topts.DirName = thumbnail.DefaultDirName
	}
	if topts.Accessor == nil {
		topts.Accessor = opts.Accessor
	}

	root := opts.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	root = filepath.Clean(root)

	l := &Library{
		name: opts.Name,
		root: root,
		ext:  opts.Extensions,
		view: view.New(opts.View),

		accessor: opts.Accessor,
	}
	if l.accessor == nil {
		l.accessor = fs.NewAccessor()
	}

	sopts := catalog.Options{
		Root:         root,
		Accessor:     opts.Accessor,
		Order:        opts.Order,
		MaxDepth:     opts.MaxDepth,
		ShowDotfiles: opts.ShowDotfiles,
		Workers:      opts.Workers,
		Timeout:      opts.Timeout,
		CacheDirName: topts.DirName,
		Progress:     opts.Progress,
	}
	mopts := fileops.Options{
		Root:         root,
		CacheDirName: topts.DirName,
	}
	if opts.Thumbnails {
		l.thumbs = thumbnail.NewCache(l.root, topts)
		sopts.Thumbnails = l.thumbs
		mopts.Thumbnails = l.thumbs
	}
	l.scanner = catalog.NewScanner(sopts)
	l.mutator = fileops.New(mopts)

	o := opts.Order
	l.view.SetOrder(&o)
	return l
}

// Name returns the library name, "photos" or "files".
func (l *Library) Name() string { return l.name }

// Root returns the absolute root directory.
func (l *Library) Root() string { return l.root }

// Catalog returns the last scanned catalog, or nil.
func (l *Library) Catalog() *catalog.Catalog { return l.scanner.Current() }

// Result returns the current projection.
func (l *Library) Result() view.Result { return l.view.Result() }

// Refresh rescans the root and reprojects the view.
func (l *Library) Refresh(ctx context.Context) (view.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshLocked(ctx)
}

func (l *Library) refreshLocked(ctx context.Context) (view.Result, error) {
	if err := os.MkdirAll(l.root, fileops.DirPermission); err != nil {
		// The scan reports the root as unreadable.
		debug.Log(debug.APP, "create root %s: %v", l.root, err)
	}
	cat, err := l.scanner.Scan(ctx, l.ext)
	if err != nil {
		return l.view.Result(), err
	}
	return l.view.SetCatalog(cat), nil
}

// ApplyFilter replaces the view filter.
func (l *Library) ApplyFilter(f view.Filter) view.Result {
	return l.view.ApplyFilter(f)
}

// ApplyQuery parses q with the search syntax and applies it. An empty
// query clears the filter.
func (l *Library) ApplyQuery(q string) (view.Result, error) {
	parsed := search.ParseAt(q, l.view.Env().Now)
	if err := parsed.Validate(); err != nil {
		return l.view.Result(), errors.Newf(errors.KindInvalid, "query", "", "%v", err)
	}
	return l.view.ApplyFilter(parsed.Filter()), nil
}

// SetOrder replaces the view order.
func (l *Library) SetOrder(o catalog.Order) view.Result {
	return l.view.SetOrder(&o)
}

// RefreshView reprojects without rescanning, for date filters that crossed
// midnight.
func (l *Library) RefreshView() view.Result { return l.view.Refresh() }

// CreateFile creates a file in the root and rescans.
func (l *Library) CreateFile(ctx context.Context, name, ext, content string, overwrite bool) (string, view.Result, error) {
	var path string
	res, err := l.mutate(ctx, func() error {
		var err error
		path, err = l.mutator.CreateFile(ctx, name, ext, content, overwrite)
		return err
	})
	return path, res, err
}

// RenameFile renames a file in place and rescans.
func (l *Library) RenameFile(ctx context.Context, oldPath, newName string) (string, view.Result, error) {
	var path string
	res, err := l.mutate(ctx, func() error {
		var err error
		path, err = l.mutator.RenameFile(ctx, oldPath, newName)
		return err
	})
	return path, res, err
}

// DeleteFile removes a file and rescans.
func (l *Library) DeleteFile(ctx context.Context, path string) (view.Result, error) {
	return l.mutate(ctx, func() error {
		return l.mutator.DeleteFile(ctx, path)
	})
}

// DeleteImage removes an image with its thumbnail and rescans.
func (l *Library) DeleteImage(ctx context.Context, path string) (view.Result, error) {
	return l.mutate(ctx, func() error {
		return l.mutator.DeleteImage(ctx, path)
	})
}

// mutate runs fn and, when it succeeds, rescans. A failed mutation leaves
// the catalog untouched.
func (l *Library) mutate(ctx context.Context, fn func() error) (view.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.root, fileops.DirPermission); err != nil {
		return l.view.Result(), errors.New("library", l.root, err)
	}
	if err := fn(); err != nil {
		return l.view.Result(), err
	}
	return l.refreshLocked(ctx)
}

// Thumbnail returns the preview path for src, generating it if needed.
// src is confined to the root the same way mutation targets are.
func (l *Library) Thumbnail(ctx context.Context, src string) (string, error) {
	if l.thumbs == nil {
		return "", errors.Newf(errors.KindInvalid, "thumbnail", src, "previews are disabled for %s", l.name)
	}
	src, err := l.mutator.Resolve("thumbnail", src)
	if err != nil {
		return "", err
	}
	return l.thumbs.GetOrCreate(ctx, src)
}

// Info reads the metadata of one entry under the root, plus dimensions and
// EXIF details for images. It does not touch the catalog.
func (l *Library) Info(ctx context.Context, path string) (EntryInfo, error) {
	path, err := l.mutator.Resolve("info", path)
	if err != nil {
		return EntryInfo{}, err
	}
	meta := l.accessor.Stat(path)
	if !meta.Known() {
		return EntryInfo{}, errors.New("info", path, meta.Err)
	}
	if meta.IsDir() {
		return EntryInfo{}, errors.Newf(errors.KindInvalid, "info", path, "is a directory")
	}

	info := EntryInfo{Entry: catalog.NewEntry(path, meta), Source: meta.Source}
	if !thumbnail.IsThumbnailable(info.Ext()) {
		return info, nil
	}
	if img, err := thumbnail.Inspect(path); err == nil {
		info.Image = &img
	} else {
		logging.Warn("cannot read image details", logging.String("path", path), logging.Err(err))
	}
	if l.thumbs != nil {
		if ref, err := l.thumbs.GetOrCreate(ctx, path); err == nil {
			info.ThumbnailRef = ref
		}
	}
	return info, nil
}

// PruneThumbnails removes previews of images that no longer exist.
func (l *Library) PruneThumbnails(ctx context.Context) (int, error) {
	if l.thumbs == nil {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thumbs.Prune(ctx)
}

// DiskSpace reports the volume holding the root. It is not part of the
// catalog and is read on demand.
func (l *Library) DiskSpace() (fs.DiskSpace, error) {
	if err := os.MkdirAll(l.root, fileops.DirPermission); err != nil {
		return fs.DiskSpace{}, errors.New("disk", l.root, err)
	}
	d, err := fs.DiskUsage(l.root)
	if err != nil {
		return d, errors.New("disk", l.root, err)
	}
	return d, nil
}

// Close releases the thumbnail index.
func (l *Library) Close() error {
	if l.thumbs == nil {
		return nil
	}
	return l.thumbs.Close()
}
