package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the primary sort field.
type SortKey int

const (
	SortCreated SortKey = iota
	SortModified
	SortName
	SortSize
	SortCategory
)

func (k SortKey) String() string {
	switch k {
	case SortCreated:
		return "created"
	case SortModified:
		return "modified"
	case SortName:
		return "name"
	case SortSize:
		return "size"
	case SortCategory:
		return "category"
	default:
		return "unknown"
	}
}

// Order is a deterministic ordering. Entries whose key is unknown (zero
// time, unknown size) always sort last; ties are broken by name, then path.
type Order struct {
	Key       SortKey
	Ascending bool
	Lang      language.Tag // collation for names; zero value is language.Und
}

var (
	// NewestCreated is the default order of image catalogs.
	NewestCreated = Order{Key: SortCreated}
	// NewestModified is the default order of generic file catalogs.
	NewestModified = Order{Key: SortModified}
	// ByName sorts alphabetically.
	ByName = Order{Key: SortName, Ascending: true}
)

// ParseOrder parses "created", "modified", "name", "size" or "category",
// optionally suffixed with ":asc" or ":desc". Names default to ascending,
// everything else to descending.
func ParseOrder(s string) (Order, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	key, dir, _ := strings.Cut(s, ":")

	var o Order
	switch key {
	case "", "created":
		o.Key = SortCreated
	case "modified":
		o.Key = SortModified
	case "name":
		o.Key = SortName
		o.Ascending = true
	case "size":
		o.Key = SortSize
	case "category", "kind":
		o.Key = SortCategory
		o.Ascending = true
	default:
		return Order{}, fmt.Errorf("unknown sort key %q", key)
	}

	switch dir {
	case "":
	case "asc":
		o.Ascending = true
	case "desc":
		o.Ascending = false
	default:
		return Order{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return o, nil
}

func (o Order) String() string {
	dir := "desc"
	if o.Ascending {
		dir = "asc"
	}
	return o.Key.String() + ":" + dir
}

// Sort orders entries in place.
func (o Order) Sort(entries []Entry) {
	// collate.Collator keeps internal buffers; one per call.
	col := collate.New(o.Lang, collate.IgnoreCase, collate.Numeric)

	names := func(a, b Entry) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := o.compare(col, a, b); c != 0 {
			return c < 0
		}
		return names(a, b) < 0
	})
}

// compare returns the primary-key comparison with direction applied.
func (o Order) compare(col *collate.Collator, a, b Entry) int {
	var c int
	switch o.Key {
	case SortCreated:
		if u := unknownLast(a.CreatedAt.IsZero(), b.CreatedAt.IsZero()); u != 0 {
			return u
		}
		c = compareTime(a.CreatedAt, b.CreatedAt)
	case SortModified:
		if u := unknownLast(a.ModifiedAt.IsZero(), b.ModifiedAt.IsZero()); u != 0 {
			return u
		}
		c = compareTime(a.ModifiedAt, b.ModifiedAt)
	case SortSize:
		if u := unknownLast(!a.SizeKnown, !b.SizeKnown); u != 0 {
			return u
		}
		switch {
		case a.SizeBytes < b.SizeBytes:
			c = -1
		case a.SizeBytes > b.SizeBytes:
			c = 1
		}
	case SortCategory:
		c = strings.Compare(string(a.Category), string(b.Category))
	case SortName:
		c = col.CompareString(a.Name, b.Name)
	}
	if !o.Ascending {
		c = -c
	}
	return c
}

func unknownLast(aUnknown, bUnknown bool) int {
	switch {
	case aUnknown && !bUnknown:
		return 1
	case !aUnknown && bUnknown:
		return -1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
