// Package app wires the catalog, view, search and mutation packages into
// per-category libraries and a request loop that serializes work on them.
package app

import (
	"fmt"
	"sort"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/config"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/logging"
	"github.com/justyntemme/shelf/internal/metrics"
	"github.com/justyntemme/shelf/internal/thumbnail"
	"github.com/justyntemme/shelf/internal/view"
)

// Options configures a Shelf.
type Options struct {
	Config   config.Config
	Progress catalog.Progress
	Clock    view.Clock  // nil uses the wall clock
	Accessor fs.Accessor // nil uses the native accessor
}

// Shelf holds the photos and files libraries.
type Shelf struct {
	libraries   map[string]*Library
	metricsFile string
}

// NewShelf builds both libraries from the configuration.
func NewShelf(opts Options) (*Shelf, error) {
	cfg := opts.Config

	weekStart, err := config.ParseWeekday(cfg.View.WeekStart)
	if err != nil {
		return nil, err
	}
	vcfg := view.DefaultConfig()
	vcfg.WeekStart = weekStart
	if cfg.View.ScreenshotPrefix != "" {
		vcfg.ScreenshotPrefix = cfg.View.ScreenshotPrefix
	}
	if opts.Clock != nil {
		vcfg.Clock = opts.Clock
	}

	photoOrder, err := catalog.ParseOrder(cfg.View.PhotoOrder)
	if err != nil {
		return nil, fmt.Errorf("view.photoOrder: %w", err)
	}
	fileOrder, err := catalog.ParseOrder(cfg.View.FileOrder)
	if err != nil {
		return nil, fmt.Errorf("view.fileOrder: %w", err)
	}

	photoExts := cfg.Scan.PhotoExtensions
	if len(photoExts) == 0 {
		photoExts = catalog.ImageExtensions
	}
	photoFilter, err := catalog.NewExtFilter(photoExts...)
	if err != nil {
		return nil, fmt.Errorf("scan.photoExtensions: %w", err)
	}
	fileFilter, err := catalog.NewExtFilter(cfg.Scan.FileExtensions...)
	if err != nil {
		return nil, fmt.Errorf("scan.fileExtensions: %w", err)
	}

	base := LibraryOptions{
		View:         vcfg,
		MaxDepth:     cfg.Scan.MaxDepth,
		ShowDotfiles: cfg.Scan.ShowDotfiles,
		Workers:      cfg.Scan.Workers,
		Timeout:      cfg.Scan.Timeout.Std(),
		Accessor:     opts.Accessor,
		Progress:     opts.Progress,
		ThumbnailOptions: thumbnail.Options{
			DirName:  cfg.Thumbnails.DirName,
			Width:    cfg.Thumbnails.Width,
			Height:   cfg.Thumbnails.Height,
			Quality:  cfg.Thumbnails.Quality,
			MemoSize: cfg.Thumbnails.MemoSize,
			Accessor: opts.Accessor,
		},
	}

	photos := base
	photos.Name = Photos
	photos.Root = cfg.PhotosRoot()
	photos.Extensions = photoFilter
	photos.Order = photoOrder
	photos.Thumbnails = true

	files := base
	files.Name = Files
	files.Root = cfg.FilesRoot()
	files.Extensions = fileFilter
	files.Order = fileOrder

	s := &Shelf{
		libraries: map[string]*Library{
			Photos: NewLibrary(photos),
			Files:  NewLibrary(files),
		},
		metricsFile: cfg.Metrics.Textfile,
	}
	logging.Debug("shelf ready",
		logging.String("photos", photos.Root),
		logging.String("files", files.Root),
	)
	return s, nil
}

// Library returns the named library.
func (s *Shelf) Library(name string) (*Library, error) {
	l, ok := s.libraries[name]
	if !ok {
		return nil, errors.Newf(errors.KindInvalid, "library", name, "unknown library %q, want one of %v", name, s.Names())
	}
	return l, nil
}

// Names lists the library names in sorted order.
func (s *Shelf) Names() []string {
	names := make([]string, 0, len(s.libraries))
	for n := range s.libraries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close releases every library and writes the metrics textfile when one is
// configured.
func (s *Shelf) Close() error {
	var first error
	for _, name := range s.Names() {
		if err := s.libraries[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.metricsFile != "" {
		if err := metrics.WriteTextfile(s.metricsFile); err != nil {
			logging.Warn("failed to write metrics", logging.String("path", s.metricsFile), logging.Err(err))
		}
	}
	return first
}
