package fs

import (
	"os"
	"strings"
	"time"

	"github.com/justyntemme/shelf/internal/debug"
)

// Source records which facility produced a Metadata record.
type Source int

const (
	SourceUnknown  Source = iota // both lookups failed
	SourceNative                 // handle-based OS query
	SourceFallback               // os.Stat
)

func (s Source) String() string {
	switch s {
	case SourceNative:
		return "native"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Attr is a platform-neutral set of file attribute bits.
type Attr uint32

const (
	AttrReadOnly Attr = 1 << iota
	AttrHidden
	AttrSystem
	AttrArchive
	AttrDir
	AttrSymlink
)

// Has reports whether all bits in a are set.
func (a Attr) Has(bits Attr) bool { return a&bits == bits }

var attrNames = []struct {
	bit  Attr
	name string
}{
	{AttrReadOnly, "readonly"},
	{AttrHidden, "hidden"},
	{AttrSystem, "system"},
	{AttrArchive, "archive"},
	{AttrDir, "dir"},
	{AttrSymlink, "symlink"},
}

// String lists the set bits, comma separated, or "-" when none are set.
func (a Attr) String() string {
	var names []string
	for _, n := range attrNames {
		if a.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// Metadata describes one filesystem entry. Zero times mean "unknown".
type Metadata struct {
	Size       int64
	SizeKnown  bool
	Created    time.Time
	Modified   time.Time
	Attributes Attr
	Source     Source
	Err        error // last lookup error, kept for logging
}

// Known reports whether any lookup succeeded.
func (m Metadata) Known() bool { return m.Source != SourceUnknown }

// IsDir reports whether the entry is a directory.
func (m Metadata) IsDir() bool { return m.Attributes.Has(AttrDir) }

// Accessor reads metadata for a single path. Implementations never fail:
// an unreadable entry comes back with Source == SourceUnknown.
type Accessor interface {
	Stat(path string) Metadata
}

// OSAccessor queries the native handle-based facility first and falls back
// to os.Stat.
type OSAccessor struct{}

// NewAccessor returns the platform accessor.
func NewAccessor() OSAccessor { return OSAccessor{} }

// Stat implements Accessor.
func (OSAccessor) Stat(path string) Metadata {
	m, err := nativeStat(path)
	if err == nil {
		m.Source = SourceNative
		debug.Log(debug.FS_ENTRY, "stat %q: native size=%d created=%v", path, m.Size, !m.Created.IsZero())
		return m
	}
	debug.Log(debug.FS_ENTRY, "stat %q: native failed (%v), falling back", path, err)

	info, ferr := os.Stat(path)
	if ferr != nil {
		debug.Log(debug.FS_ENTRY, "stat %q: fallback failed: %v", path, ferr)
		return Metadata{Source: SourceUnknown, Err: ferr}
	}
	m = fromFileInfo(info)
	m.Source = SourceFallback
	m.Err = err
	return m
}

// fromFileInfo converts an os.FileInfo. Creation time comes from the
// platform-specific Sys() payload where one exists.
func fromFileInfo(info os.FileInfo) Metadata {
	m := Metadata{
		Size:      info.Size(),
		SizeKnown: true,
		Modified:  info.ModTime(),
		Created:   creationTime(info),
	}
	mode := info.Mode()
	if mode.IsDir() {
		m.Attributes |= AttrDir
	}
	if mode&os.ModeSymlink != 0 {
		m.Attributes |= AttrSymlink
	}
	if mode.Perm()&0o222 == 0 {
		m.Attributes |= AttrReadOnly
	}
	if len(info.Name()) > 0 && info.Name()[0] == '.' {
		m.Attributes |= AttrHidden
	}
	return m
}
