// Package search turns a query string into a view.Filter.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/view"
)

// Directive types
type DirectiveType int

const (
	DirFilename DirectiveType = iota
	DirKind
	DirExt
	DirSize
	DirCreated
	DirModified
	DirType
)

// Comparison operators for size/date
type Operator int

const (
	OpNone Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
	OpEquals
)

func (op Operator) String() string {
	switch op {
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterEq:
		return ">="
	case OpLessEq:
		return "<="
	default:
		return "="
	}
}

// Relative date keywords resolved when the filter is evaluated.
const (
	relToday     = "today"
	relYesterday = "yesterday"
	relWeek      = "week"
)

// Directive represents a single search directive
type Directive struct {
	Type     DirectiveType
	Value    string
	Values   []string // comma-separated alternatives for kind: and ext:
	Operator Operator
	NumValue int64     // Parsed size in bytes
	TimeVal  time.Time // Parsed date
	Until    time.Time // exclusive end when the date names a whole month
	Relative string    // today, yesterday or week; TimeVal is then advisory
	Invalid  bool      // value could not be parsed
}

// Query holds parsed search directives
type Query struct {
	Directives []Directive
	Raw        string
}

// Parse parses a search string into directives
// Examples:
//   - "beach" -> name contains "beach"
//   - "IMG_*" -> name glob
//   - "kind:image,video" -> category membership
//   - "ext:png" -> files with .png extension
//   - "size:>1MB" -> files larger than 1MB
//   - "created:today", "created:week" -> calendar filters on creation time
//   - "modified:>2024-01-01" -> files modified after Jan 1, 2024
//   - "type:screenshot", "type:photo" -> screenshot naming convention
func Parse(input string) *Query {
	return ParseAt(input, time.Now())
}

// ParseAt is Parse with an explicit "now" for absolute keywords such as
// "month" and "year".
func ParseAt(input string, now time.Time) *Query {
	q := &Query{Raw: input}
	input = strings.TrimSpace(input)
	if input == "" {
		return q
	}

	// Split by spaces, but respect quotes
	parts := splitRespectingQuotes(input)

	for _, part := range parts {
		d := parseDirective(part, now)
		q.Directives = append(q.Directives, d)
	}

	return q
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func parseDirective(s string, now time.Time) Directive {
	// Check for directive:value pattern
	if idx := strings.Index(s, ":"); idx > 0 {
		directive := strings.ToLower(s[:idx])
		value := s[idx+1:]
		value = strings.Trim(value, "\"'")

		switch directive {
		case "filename", "name", "file":
			return Directive{Type: DirFilename, Value: value}

		case "kind", "category", "cat":
			d := Directive{Type: DirKind, Value: value}
			for _, v := range splitList(value) {
				if _, ok := catalog.ParseCategory(v); !ok {
					d.Invalid = true
				}
				d.Values = append(d.Values, strings.ToLower(v))
			}
			d.Invalid = d.Invalid || len(d.Values) == 0
			return d

		case "ext", "extension":
			d := Directive{Type: DirExt, Value: value}
			for _, v := range splitList(value) {
				if !strings.HasPrefix(v, ".") {
					v = "." + v
				}
				d.Values = append(d.Values, strings.ToLower(v))
			}
			d.Invalid = len(d.Values) == 0
			if len(d.Values) > 0 {
				d.Value = d.Values[0]
			}
			return d

		case "type":
			switch strings.ToLower(value) {
			case "screenshot", "screenshots":
				return Directive{Type: DirType, Value: "screenshot"}
			case "photo", "photos":
				return Directive{Type: DirType, Value: "photo"}
			}
			// Anything else is an extension, as in "type:md".
			return parseDirective("ext:"+value, now)

		case "size":
			op, numStr := parseOperator(value)
			bytes, ok := parseSizeOK(numStr)
			return Directive{Type: DirSize, Value: value, Operator: op, NumValue: bytes, Invalid: !ok}

		case "created", "taken", "ctime":
			return parseDateDirective(DirCreated, value, now)

		case "modified", "date", "mtime":
			return parseDateDirective(DirModified, value, now)
		}
	}

	// Default to filename search
	return Directive{Type: DirFilename, Value: s}
}

func parseDateDirective(typ DirectiveType, value string, now time.Time) Directive {
	op, dateStr := parseOperator(value)
	d := Directive{Type: typ, Value: value, Operator: op}
	switch strings.ToLower(dateStr) {
	case relToday, relYesterday, relWeek:
		d.Relative = strings.ToLower(dateStr)
	}
	d.TimeVal = parseDate(dateStr, now)
	d.Invalid = d.TimeVal.IsZero()
	if _, err := time.Parse("2006-01", strings.TrimSpace(dateStr)); err == nil {
		d.Until = d.TimeVal.AddDate(0, 1, 0)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSizeOK converts size strings like "1KB", "10MB", "1GB" to bytes
func parseSizeOK(s string) (int64, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return int64(n * float64(multiplier)), true
}

// parseDate parses date strings like "2024-01-01", "2024-01", "today", "yesterday"
func parseDate(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case relToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case relYesterday:
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case relWeek:
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}

	// Try various date formats
	formats := []string{
		"2006-01-02",
		"2006-01",
		"2006/01/02",
		"01/02/2006",
		"jan 2, 2006",
	}

	for _, layout := range formats {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}

	return time.Time{}
}

// Validate reports the first directive whose value could not be parsed.
func (q *Query) Validate() error {
	for _, d := range q.Directives {
		if d.Invalid {
			return fmt.Errorf("invalid search value %q", d.Value)
		}
	}
	return nil
}

// Filter converts the query to a view filter. All directives must match
// (implicit AND). Invalid directives are ignored; call Validate first to
// reject them.
func (q *Query) Filter() view.Filter {
	filters := make([]view.Filter, 0, len(q.Directives))
	for _, d := range q.Directives {
		if d.Invalid {
			continue
		}
		filters = append(filters, d.filter())
	}
	return view.All(filters...)
}

func (d Directive) filter() view.Filter {
	switch d.Type {
	case DirKind:
		cats := make([]catalog.Category, 0, len(d.Values))
		for _, v := range d.Values {
			if c, ok := catalog.ParseCategory(v); ok {
				cats = append(cats, c)
			}
		}
		return view.InCategory(cats...)

	case DirExt:
		exts := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			exts[v] = true
		}
		return view.Func("ext:"+strings.Join(d.Values, ","), func(e catalog.Entry) bool {
			return exts[e.Ext()]
		})

	case DirType:
		if d.Value == "screenshot" {
			return view.Screenshots()
		}
		return view.Photos()

	case DirSize:
		return view.Func("size:"+d.Operator.String()+strconv.FormatInt(d.NumValue, 10), func(e catalog.Entry) bool {
			return e.SizeKnown && CompareInt(e.SizeBytes, d.NumValue, d.Operator)
		})

	case DirCreated:
		if d.Operator == OpEquals || d.Relative == relWeek {
			switch d.Relative {
			case relToday:
				return view.Today()
			case relYesterday:
				return view.Yesterday()
			case relWeek:
				return view.ThisWeek()
			}
			if d.Until.IsZero() {
				return view.OnDay(d.TimeVal)
			}
		}
		return view.Func("created:"+d.Value, func(e catalog.Entry) bool {
			return !e.CreatedAt.IsZero() && d.matchTime(e.CreatedAt)
		})

	case DirModified:
		return view.Func("modified:"+d.Value, func(e catalog.Entry) bool {
			return !e.ModifiedAt.IsZero() && d.matchTime(e.ModifiedAt)
		})
	}

	pattern := strings.ToLower(d.Value)
	return view.Func("name:"+d.Value, func(e catalog.Entry) bool {
		return MatchGlob(strings.ToLower(e.Name), pattern)
	})
}

// matchTime compares ts with the directive's date. A month-precision date
// covers [TimeVal, Until): equality means inside the month, > means after it
// and <= means up to its end.
func (d Directive) matchTime(ts time.Time) bool {
	if d.Until.IsZero() {
		return CompareTime(ts, d.TimeVal, d.Operator)
	}
	switch d.Operator {
	case OpEquals:
		return !ts.Before(d.TimeVal) && ts.Before(d.Until)
	case OpGreater:
		return !ts.Before(d.Until)
	case OpLessEq:
		return ts.Before(d.Until)
	default:
		return CompareTime(ts, d.TimeVal, d.Operator)
	}
}

// MatchGlob does simple glob matching with * wildcards
func MatchGlob(name, pattern string) bool {
	// If pattern has no wildcards, do substring match
	if !strings.Contains(pattern, "*") {
		return strings.Contains(name, pattern)
	}

	parts := strings.Split(pattern, "*")

	// Check prefix
	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}

	// Check suffix
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(name, last) {
		return false
	}

	// Check middle parts exist in order
	pos := len(parts[0])
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}

	return pos <= len(name)-len(last)
}

func CompareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func CompareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return val.After(target) || val.Equal(target)
	case OpLessEq:
		return val.Before(target) || val.Equal(target)
	default:
		// For equals, compare just the date part
		vy, vm, vd := val.In(target.Location()).Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}

// IsEmpty returns true if query has no directives
func (q *Query) IsEmpty() bool {
	return len(q.Directives) == 0
}
