package app

import (
	"context"
	"sync"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/view"
)

type OpType int

const (
	OpScan OpType = iota
	OpView
	OpThumbnail
	OpPrune
	OpCreate
	OpRename
	OpDelete
	OpDeleteImage
	OpDisk
	OpInfo
	OpCancel
)

func (op OpType) String() string {
	switch op {
	case OpScan:
		return "scan"
	case OpView:
		return "view"
	case OpThumbnail:
		return "thumbnail"
	case OpPrune:
		return "prune"
	case OpCreate:
		return "create"
	case OpRename:
		return "rename"
	case OpDelete:
		return "delete"
	case OpDeleteImage:
		return "delete-image"
	case OpDisk:
		return "disk"
	case OpInfo:
		return "info"
	case OpCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

type Request struct {
	Op      OpType
	Library string
	Gen     int64 // Generation counter to track stale requests

	Path    string // target of rename/delete/thumbnail/info
	Name    string // new name for create/rename
	Ext     string
	Content string

	Overwrite bool

	// Query and Order, when set, are applied to the view after a scan or
	// on OpView. An empty Query on OpView clears the filter.
	Query string
	Order string
}

type Response struct {
	Op        OpType
	Library   string
	Gen       int64 // Generation counter from request
	Result    view.Result
	Path      string // created, renamed or thumbnail path
	Pruned    int
	Disk      fs.DiskSpace
	Info      EntryInfo
	Err       error
	Cancelled bool // True if a scan was cancelled
}

// System processes requests one at a time. Scans run in the background so
// a later request can cancel them; every other request waits for the
// library lock, so a mutation and the rescan it triggers never interleave
// with another scan.
type System struct {
	RequestChan  chan Request
	ResponseChan chan Response
	ProgressChan chan catalog.Update // Channel for progress updates

	shelf *Shelf

	// Cancellation support
	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc
	currentGen int64
	scans      sync.WaitGroup
}

// NewSystem builds a shelf whose scans report to ProgressChan.
func NewSystem(opts Options) (*System, error) {
	progress := make(chan catalog.Update, 100) // Buffered to avoid blocking
	opts.Progress = catalog.ChanProgress(progress)

	shelf, err := NewShelf(opts)
	if err != nil {
		return nil, err
	}
	return &System{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
		ProgressChan: progress,
		shelf:        shelf,
	}, nil
}

// Shelf returns the libraries the system serves.
func (s *System) Shelf() *Shelf { return s.shelf }

// Start serves requests until RequestChan is closed, then waits for
// background scans and closes ResponseChan.
func (s *System) Start(ctx context.Context) {
	defer func() {
		s.cancel("shutdown")
		s.scans.Wait()
		close(s.ResponseChan)
	}()

	for req := range s.RequestChan {
		debug.Log(debug.APP, "Request: op=%s library=%q path=%q gen=%d", req.Op, req.Library, req.Path, req.Gen)

		switch req.Op {
		case OpCancel:
			s.cancel("cancel request")
			// Don't send a response for cancel - the scan goroutine will handle it

		case OpScan:
			s.cancel("new scan")
			scanCtx, cancel := context.WithCancel(ctx)
			s.cancelMu.Lock()
			s.cancelFunc = cancel
			s.currentGen = req.Gen
			s.cancelMu.Unlock()

			s.scans.Add(1)
			go func(ctx context.Context, req Request) {
				defer s.scans.Done()
				defer cancel()
				resp := s.handle(ctx, req)
				if ctx.Err() != nil {
					resp.Cancelled = true
					debug.Log(debug.APP, "Scan cancelled (gen %d)", req.Gen)
				}
				s.ResponseChan <- resp
			}(scanCtx, req)

		case OpCreate, OpRename, OpDelete, OpDeleteImage:
			// The mutation rescans on its own.
			s.cancel("mutation")
			s.ResponseChan <- s.handle(ctx, req)

		default:
			s.ResponseChan <- s.handle(ctx, req)
		}
	}
}

func (s *System) cancel(reason string) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelFunc != nil {
		debug.Log(debug.APP, "Cancelling scan gen %d: %s", s.currentGen, reason)
		s.cancelFunc()
		s.cancelFunc = nil
	}
}

func (s *System) handle(ctx context.Context, req Request) Response {
	resp := Response{Op: req.Op, Library: req.Library, Gen: req.Gen}

	lib, err := s.shelf.Library(req.Library)
	if err != nil {
		resp.Err = err
		return resp
	}

	switch req.Op {
	case OpScan:
		resp.Result, resp.Err = lib.Refresh(ctx)
		if resp.Err == nil {
			resp.Result, resp.Err = s.project(lib, req)
		}
	case OpView:
		resp.Result, resp.Err = s.project(lib, req)
		if req.Query == "" && resp.Err == nil {
			resp.Result = lib.ApplyFilter(view.Everything)
		}
	case OpThumbnail:
		resp.Path, resp.Err = lib.Thumbnail(ctx, req.Path)
	case OpPrune:
		resp.Pruned, resp.Err = lib.PruneThumbnails(ctx)
	case OpCreate:
		resp.Path, resp.Result, resp.Err = lib.CreateFile(ctx, req.Name, req.Ext, req.Content, req.Overwrite)
	case OpRename:
		resp.Path, resp.Result, resp.Err = lib.RenameFile(ctx, req.Path, req.Name)
	case OpDelete:
		resp.Result, resp.Err = lib.DeleteFile(ctx, req.Path)
	case OpDeleteImage:
		resp.Result, resp.Err = lib.DeleteImage(ctx, req.Path)
	case OpDisk:
		resp.Disk, resp.Err = lib.DiskSpace()
	case OpInfo:
		resp.Info, resp.Err = lib.Info(ctx, req.Path)
	}

	debug.Log(debug.APP, "Response: op=%s library=%q entries=%d gen=%d err=%v",
		resp.Op, resp.Library, resp.Result.TotalCount, resp.Gen, resp.Err)
	return resp
}

// project applies req.Order and req.Query to the library view.
func (s *System) project(lib *Library, req Request) (view.Result, error) {
	res := lib.Result()
	if req.Order != "" {
		o, err := catalog.ParseOrder(req.Order)
		if err != nil {
			return res, errors.Newf(errors.KindInvalid, "order", req.Order, "%v", err)
		}
		res = lib.SetOrder(o)
	}
	if req.Query != "" {
		return lib.ApplyQuery(req.Query)
	}
	return res, nil
}

// Close releases the shelf. Call it after Start has returned.
func (s *System) Close() error {
	return s.shelf.Close()
}
