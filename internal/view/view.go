// Package view derives filtered, sorted projections of a catalog for the
// presentation layer. Projections never touch the filesystem.
package view

import (
	"sync"
	"time"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/debug"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Config configures a View.
type Config struct {
	WeekStart        time.Weekday   // zero value is Sunday; DefaultConfig uses Monday
	ScreenshotPrefix string         // defaults to DefaultScreenshotPrefix
	Location         *time.Location // calendar days are counted here; defaults to time.Local
	Clock            Clock          // defaults to RealClock
}

// DefaultConfig uses ISO weeks (Monday start) and local time.
func DefaultConfig() Config {
	return Config{
		WeekStart:        time.Monday,
		ScreenshotPrefix: DefaultScreenshotPrefix,
		Location:         time.Local,
		Clock:            RealClock{},
	}
}

// Result is one projection of a catalog.
type Result struct {
	Entries    []catalog.Entry
	TotalCount int
	TotalBytes int64 // over entries with known size
	Status     catalog.Status
	Filter     string
	Order      string
}

// Apply is the pure projection used by View: it filters c under env and
// sorts the survivors. A nil order keeps the catalog's order.
func Apply(c *catalog.Catalog, f Filter, order *catalog.Order, env Env) Result {
	res := Result{Filter: f.String(), Order: "scan"}
	if order != nil {
		res.Order = order.String()
	}
	if c == nil {
		return res
	}
	res.Status = c.Status

	res.Entries = make([]catalog.Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if !f.Match(e, env) {
			continue
		}
		res.Entries = append(res.Entries, e)
		if e.SizeKnown {
			res.TotalBytes += e.SizeBytes
		}
	}
	res.TotalCount = len(res.Entries)
	if order != nil {
		order.Sort(res.Entries)
	}
	return res
}

// View holds the current projection of one catalog. Every change of the
// catalog, filter or order recomputes it in full.
type View struct {
	cfg Config

	mu      sync.RWMutex
	catalog *catalog.Catalog
	filter  Filter
	order   *catalog.Order
	result  Result
}

// New creates an empty view.
func New(cfg Config) *View {
	if cfg.ScreenshotPrefix == "" {
		cfg.ScreenshotPrefix = DefaultScreenshotPrefix
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	return &View{cfg: cfg}
}

// Env returns the evaluation environment as of now.
func (v *View) Env() Env {
	return Env{
		Now:              v.cfg.Clock.Now().In(v.cfg.Location),
		WeekStart:        v.cfg.WeekStart,
		ScreenshotPrefix: v.cfg.ScreenshotPrefix,
	}
}

// SetCatalog replaces the underlying catalog.
func (v *View) SetCatalog(c *catalog.Catalog) Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.catalog = c
	return v.recompute()
}

// ApplyFilter replaces the filter.
func (v *View) ApplyFilter(f Filter) Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	return v.recompute()
}

// SetOrder replaces the ordering. A nil order keeps the catalog's order.
func (v *View) SetOrder(o *catalog.Order) Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.order = o
	return v.recompute()
}

// Refresh recomputes against the current time, for date filters that
// crossed midnight.
func (v *View) Refresh() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recompute()
}

// Result returns the last projection.
func (v *View) Result() Result {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.result
}

func (v *View) recompute() Result {
	v.result = Apply(v.catalog, v.filter, v.order, v.Env())
	debug.Log(debug.VIEW, "filter=%s order=%s -> %d entries, %d bytes",
		v.result.Filter, v.result.Order, v.result.TotalCount, v.result.TotalBytes)
	return v.result
}
