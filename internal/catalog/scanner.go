package catalog

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/logging"
	"github.com/justyntemme/shelf/internal/metrics"
	"github.com/justyntemme/shelf/internal/thumbnail"
)

// Thumbnailer derives previews for image entries.
type Thumbnailer interface {
	GetOrCreate(ctx context.Context, src string) (string, error)
}

// Options configures a Scanner.
type Options struct {
	Root         string
	Accessor     fs.Accessor   // defaults to fs.NewAccessor()
	Thumbnails   Thumbnailer   // nil disables previews
	Order        Order         // final ordering of entries
	MaxDepth     int           // 1 lists direct children only
	ShowDotfiles bool          // include names starting with "."
	Workers      int           // concurrent thumbnail generations
	Timeout      time.Duration // 0 means no limit beyond ctx
	CacheDirName string        // skipped during enumeration
	Progress     Progress
}

// DefaultWorkers caps thumbnail concurrency to limit open file handles.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 4 {
		n = 4
	}
	return n
}

// Scanner owns the canonical catalog of one root.
type Scanner struct {
	opts Options

	mu      sync.RWMutex
	current *Catalog
}

// NewScanner returns a scanner for opts.Root.
func NewScanner(opts Options) *Scanner {
	if abs, err := filepath.Abs(opts.Root); err == nil {
		opts.Root = abs
	}
	opts.Root = filepath.Clean(opts.Root)
	if opts.Accessor == nil {
		opts.Accessor = fs.NewAccessor()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	if opts.CacheDirName == "" {
		opts.CacheDirName = thumbnail.DefaultDirName
	}
	if opts.Progress == nil {
		opts.Progress = NopProgress{}
	}
	return &Scanner{opts: opts}
}

// Root returns the absolute root directory.
func (s *Scanner) Root() string { return s.opts.Root }

// Current returns the most recent catalog, or nil before the first scan.
func (s *Scanner) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Scan enumerates the root and returns a fresh catalog. A missing or
// unreadable root is reported through Catalog.Status, not as an error; the
// error is non-nil only when ctx is cancelled or the timeout expires, in
// which case the partial result is discarded.
func (s *Scanner) Scan(ctx context.Context, filter *ExtFilter) (*Catalog, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	cat := &Catalog{
		Root:      s.opts.Root,
		ScanID:    uuid.New(),
		ScannedAt: start,
	}
	log := logging.L().With(logging.String("scan_id", cat.ScanID.String()), logging.String("root", cat.Root))
	s.opts.Progress.Report(Update{Root: cat.Root, Phase: PhaseStarted, Label: "Scanning " + cat.Root})
	debug.Log(debug.SCAN, "scan %s: root=%q filter=%s depth=%d", cat.ScanID, cat.Root, filter, s.opts.MaxDepth)

	if err := checkRoot(cat.Root); err != nil {
		cat.Err = err
		cat.Status = StatusUnreadable
		if errors.Is(err, errors.ErrNotFound) {
			cat.Status = StatusNotFound
		}
		log.Warn("scan root unavailable", logging.String("status", string(cat.Status)), logging.Err(err))
		return s.finish(cat, start), nil
	}

	entries, dropped, err := s.enumerate(ctx, filter)
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("scan aborted", logging.Err(ctxErr))
		return nil, ctxErr
	}
	if err != nil {
		cat.Err = errors.New("scan", cat.Root, err)
		cat.Status = StatusUnreadable
		log.Warn("scan root unreadable", logging.Err(err))
		return s.finish(cat, start), nil
	}
	cat.Dropped = dropped

	if err := s.thumbnails(ctx, entries); err != nil {
		log.Warn("scan aborted during thumbnails", logging.Err(err))
		return nil, err
	}

	s.opts.Order.Sort(entries)
	cat.Entries = entries
	for _, e := range entries {
		if e.SizeKnown {
			cat.TotalBytes += e.SizeBytes
		}
	}
	if len(entries) == 0 {
		cat.Status = StatusEmpty
	} else {
		cat.Status = StatusOK
	}

	s.finish(cat, start)
	log.Info("scan complete",
		logging.Int("entries", len(entries)),
		logging.Int("dropped", dropped),
		logging.String("total", humanize.IBytes(uint64(cat.TotalBytes))),
		logging.Duration("duration", cat.Duration),
	)
	return cat, nil
}

func (s *Scanner) finish(cat *Catalog, start time.Time) *Catalog {
	cat.Duration = time.Since(start)
	metrics.RecordScan(cat.Root, string(cat.Status), len(cat.Entries), cat.TotalBytes, cat.Duration)
	s.opts.Progress.Report(Update{
		Root:    cat.Root,
		Phase:   PhaseFinished,
		Current: len(cat.Entries),
		Total:   len(cat.Entries),
		Label:   string(cat.Status),
	})

	s.mu.Lock()
	s.current = cat
	s.mu.Unlock()
	return cat
}

// checkRoot verifies the root is a readable directory.
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.New("scan", root, err)
	}
	if !info.IsDir() {
		return errors.Newf(errors.KindInvalid, "scan", root, "not a directory")
	}
	f, err := os.Open(root)
	if err != nil {
		return errors.New("scan", root, err)
	}
	return f.Close()
}

// enumerate walks the root with fastwalk. The walk callback runs on several
// goroutines at once.
func (s *Scanner) enumerate(ctx context.Context, filter *ExtFilter) ([]Entry, int, error) {
	root := s.opts.Root
	var (
		mu      sync.Mutex
		result  []Entry
		dropped int
		seen    atomic.Int64
	)

	// Symlinked directories are not followed, so a link to a parent cannot loop.
	conf := &fastwalk.Config{
		Follow: false,
	}

	err := fastwalk.Walk(conf, root, func(path string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == root {
				return err
			}
			debug.Log(debug.SCAN, "walk error at %q: %v", path, err)
			return nil // Skip errors, continue walking
		}
		if path == root {
			return nil
		}

		name := d.Name()
		hidden := len(name) > 0 && name[0] == '.'

		if d.IsDir() {
			if name == s.opts.CacheDirName || (hidden && !s.opts.ShowDotfiles) {
				return fastwalk.SkipDir
			}
			if fastwalk.DirEntryDepth(d) >= s.opts.MaxDepth {
				return fastwalk.SkipDir
			}
			return nil
		}
		if hidden && !s.opts.ShowDotfiles {
			return nil
		}
		if !filter.Allows(name) {
			debug.Log(debug.FS_ENTRY, "filtered out %q", name)
			return nil
		}

		meta := s.opts.Accessor.Stat(path)
		if !meta.Known() {
			mu.Lock()
			dropped++
			mu.Unlock()
			metrics.RecordUnknownEntry()
			logging.Warn("dropping entry with unreadable metadata", logging.String("path", path), logging.Err(meta.Err))
			return nil
		}
		if meta.IsDir() {
			return nil
		}

		entry := NewEntry(path, meta)
		mu.Lock()
		result = append(result, entry)
		mu.Unlock()

		n := seen.Add(1)
		s.opts.Progress.Report(Update{Root: root, Phase: PhaseEnumerating, Current: int(n), Label: name})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	debug.Log(debug.SCAN, "enumerated %d entries under %q (%d dropped)", len(result), root, dropped)
	return result, dropped, nil
}

// thumbnails fills ThumbnailRef for image entries with a bounded pool.
// Per-entry failures leave the entry without a preview.
func (s *Scanner) thumbnails(ctx context.Context, entries []Entry) error {
	if s.opts.Thumbnails == nil {
		return nil
	}

	var pending []int
	for i := range entries {
		if entries[i].Category == CategoryImage && thumbnail.IsThumbnailable(entries[i].Ext()) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var done atomic.Int64
	total := len(pending)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, i := range pending {
		i := i
		g.Go(func() error {
			ref, err := s.opts.Thumbnails.GetOrCreate(gctx, entries[i].Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.Warn("no thumbnail",
					logging.String("path", entries[i].Path),
					logging.String("kind", string(errors.KindOf(err))),
					logging.Err(err))
			} else {
				entries[i].ThumbnailRef = ref
			}
			n := done.Add(1)
			s.opts.Progress.Report(Update{
				Root:    s.opts.Root,
				Phase:   PhaseThumbnails,
				Current: int(n),
				Total:   total,
				Label:   entries[i].Name,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
