package catalog

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ImageExtensions is the default allow-list of the photo library.
var ImageExtensions = []string{"jpg", "jpeg", "png", "bmp", "gif", "webp", "tif", "tiff", "heic", "heif"}

// ExtFilter is an allow-list of file-name glob patterns. Matching is
// case-insensitive. A nil or empty filter allows everything.
type ExtFilter struct {
	patterns []string
}

// NewExtFilter builds a filter. Bare extensions ("jpg", ".jpg") are turned
// into "*.jpg"; anything containing a glob meta character is used as is.
func NewExtFilter(patterns ...string) (*ExtFilter, error) {
	f := &ExtFilter{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") {
			p = "*." + strings.TrimPrefix(p, ".")
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid extension pattern %q", p)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// MustExtFilter is NewExtFilter for patterns known at compile time.
func MustExtFilter(patterns ...string) *ExtFilter {
	f, err := NewExtFilter(patterns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Allows reports whether a base file name passes the filter.
func (f *ExtFilter) Allows(name string) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, p := range f.patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns.
func (f *ExtFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}

func (f *ExtFilter) String() string {
	if f == nil || len(f.patterns) == 0 {
		return "*"
	}
	return strings.Join(f.patterns, ",")
}
