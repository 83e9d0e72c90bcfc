package view

import (
	"strings"
	"time"

	"github.com/justyntemme/shelf/internal/catalog"
)

// DefaultScreenshotPrefix marks captured screens; camera shots use "Photo_".
const DefaultScreenshotPrefix = "Screenshot_"

// Env carries what date and naming predicates need at evaluation time.
type Env struct {
	Now              time.Time // in the location days are counted in
	WeekStart        time.Weekday
	ScreenshotPrefix string
}

// Filter is a named predicate over catalog entries. The zero Filter matches
// everything.
type Filter struct {
	desc  string
	match func(e catalog.Entry, env Env) bool
}

// Match reports whether e passes the filter.
func (f Filter) Match(e catalog.Entry, env Env) bool {
	if f.match == nil {
		return true
	}
	return f.match(e, env)
}

func (f Filter) String() string {
	if f.desc == "" {
		return "all"
	}
	return f.desc
}

// IsZero reports whether f matches everything by construction.
func (f Filter) IsZero() bool { return f.match == nil }

// Everything matches every entry.
var Everything = Filter{}

// Func wraps an arbitrary predicate.
func Func(desc string, fn func(catalog.Entry) bool) Filter {
	return Filter{desc: desc, match: func(e catalog.Entry, _ Env) bool { return fn(e) }}
}

// All matches entries passing every filter.
func All(filters ...Filter) Filter {
	active := nonZero(filters)
	switch len(active) {
	case 0:
		return Everything
	case 1:
		return active[0]
	}
	return Filter{
		desc: join(active, " "),
		match: func(e catalog.Entry, env Env) bool {
			for _, f := range active {
				if !f.Match(e, env) {
					return false
				}
			}
			return true
		},
	}
}

// Any matches entries passing at least one filter. Any() matches nothing.
func Any(filters ...Filter) Filter {
	return Filter{
		desc: "(" + join(filters, " | ") + ")",
		match: func(e catalog.Entry, env Env) bool {
			for _, f := range filters {
				if f.Match(e, env) {
					return true
				}
			}
			return false
		},
	}
}

// Not inverts f.
func Not(f Filter) Filter {
	return Filter{
		desc:  "!" + f.String(),
		match: func(e catalog.Entry, env Env) bool { return !f.Match(e, env) },
	}
}

// InCategory matches entries in any of the given categories.
func InCategory(cats ...catalog.Category) Filter {
	set := make(map[catalog.Category]bool, len(cats))
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		set[c] = true
		names = append(names, string(c))
	}
	return Filter{
		desc:  "kind:" + strings.Join(names, ","),
		match: func(e catalog.Entry, _ Env) bool { return set[e.Category] },
	}
}

// Screenshots matches names carrying the screenshot prefix.
func Screenshots() Filter {
	return Filter{desc: "type:screenshot", match: isScreenshot}
}

// Photos matches images that are not screenshots.
func Photos() Filter {
	return Filter{
		desc: "type:photo",
		match: func(e catalog.Entry, env Env) bool {
			return e.Category == catalog.CategoryImage && !isScreenshot(e, env)
		},
	}
}

func isScreenshot(e catalog.Entry, env Env) bool {
	prefix := env.ScreenshotPrefix
	if prefix == "" {
		prefix = DefaultScreenshotPrefix
	}
	return strings.HasPrefix(e.Name, prefix)
}

// OnDay matches entries created on the same calendar day as day, counted in
// the location of Env.Now.
func OnDay(day time.Time) Filter {
	return Filter{
		desc: "created:" + day.Format("2006-01-02"),
		match: func(e catalog.Entry, env Env) bool {
			return sameDay(e.CreatedAt, day, env)
		},
	}
}

// Today matches entries created on the current calendar day.
func Today() Filter {
	return Filter{
		desc: "created:today",
		match: func(e catalog.Entry, env Env) bool {
			return sameDay(e.CreatedAt, env.Now, env)
		},
	}
}

// Yesterday matches entries created on the previous calendar day.
func Yesterday() Filter {
	return Filter{
		desc: "created:yesterday",
		match: func(e catalog.Entry, env Env) bool {
			return sameDay(e.CreatedAt, env.Now.AddDate(0, 0, -1), env)
		},
	}
}

// ThisWeek matches entries created at or after the start of the current
// week. The week starts at midnight on Env.WeekStart.
func ThisWeek() Filter {
	return Filter{
		desc: "created:week",
		match: func(e catalog.Entry, env Env) bool {
			if e.CreatedAt.IsZero() {
				return false
			}
			return !e.CreatedAt.Before(StartOfWeek(env.Now, env.WeekStart))
		},
	}
}

// StartOfWeek returns midnight of the most recent weekStart on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(ts, day time.Time, env Env) bool {
	if ts.IsZero() {
		return false
	}
	loc := env.Now.Location()
	ay, am, ad := ts.In(loc).Date()
	by, bm, bd := day.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func nonZero(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if !f.IsZero() {
			out = append(out, f)
		}
	}
	return out
}

func join(filters []Filter, sep string) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, sep)
}
