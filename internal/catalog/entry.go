// Package catalog enumerates a root directory into an immutable snapshot of
// entries enriched with OS metadata and thumbnail references.
package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/shelf/internal/fs"
)

// Category is a coarse file-type classification derived from extension.
type Category string

const (
	CategoryDocument   Category = "document"
	CategoryImage      Category = "image"
	CategoryAudio      Category = "audio"
	CategoryVideo      Category = "video"
	CategoryArchive    Category = "archive"
	CategoryExecutable Category = "executable"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDocument,
	CategoryImage,
	CategoryAudio,
	CategoryVideo,
	CategoryArchive,
	CategoryExecutable,
	CategoryOther,
}

var categoryByExt = map[string]Category{
	// Documents
	".txt": CategoryDocument, ".md": CategoryDocument, ".pdf": CategoryDocument,
	".doc": CategoryDocument, ".docx": CategoryDocument, ".odt": CategoryDocument,
	".xls": CategoryDocument, ".xlsx": CategoryDocument, ".ods": CategoryDocument,
	".ppt": CategoryDocument, ".pptx": CategoryDocument, ".rtf": CategoryDocument,
	".csv": CategoryDocument, ".json": CategoryDocument, ".xml": CategoryDocument,
	".html": CategoryDocument, ".htm": CategoryDocument, ".cs": CategoryDocument,
	".go": CategoryDocument,

	// Images
	".jpg": CategoryImage, ".jpeg": CategoryImage, ".png": CategoryImage,
	".gif": CategoryImage, ".bmp": CategoryImage, ".webp": CategoryImage,
	".tif": CategoryImage, ".tiff": CategoryImage, ".heic": CategoryImage,
	".heif": CategoryImage, ".svg": CategoryImage, ".ico": CategoryImage,

	// Audio
	".mp3": CategoryAudio, ".wav": CategoryAudio, ".wma": CategoryAudio,
	".flac": CategoryAudio, ".ogg": CategoryAudio, ".m4a": CategoryAudio,
	".aac": CategoryAudio,

	// Video
	".mp4": CategoryVideo, ".avi": CategoryVideo, ".mkv": CategoryVideo,
	".mov": CategoryVideo, ".wmv": CategoryVideo, ".webm": CategoryVideo,

	// Archives
	".zip": CategoryArchive, ".rar": CategoryArchive, ".7z": CategoryArchive,
	".tar": CategoryArchive, ".gz": CategoryArchive, ".tgz": CategoryArchive,
	".bz2": CategoryArchive, ".xz": CategoryArchive,

	// Executables
	".exe": CategoryExecutable, ".msi": CategoryExecutable, ".bat": CategoryExecutable,
	".cmd": CategoryExecutable, ".sh": CategoryExecutable, ".app": CategoryExecutable,
	".bin": CategoryExecutable, ".dll": CategoryExecutable,
}

// CategoryOf classifies a file name by its extension.
func CategoryOf(name string) Category {
	if c, ok := categoryByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return c
	}
	return CategoryOther
}

// ParseCategory accepts a category name, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Entry is an immutable snapshot of one file. Zero times are unknown.
type Entry struct {
	Path         string
	Name         string
	SizeBytes    int64
	SizeKnown    bool
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Category     Category
	Attributes   fs.Attr
	ThumbnailRef string // empty when no preview is available
}

// NewEntry builds the catalog entry for path from its metadata.
func NewEntry(path string, m fs.Metadata) Entry {
	name := filepath.Base(path)
	e := Entry{
		Path:       path,
		Name:       name,
		CreatedAt:  m.Created,
		ModifiedAt: m.Modified,
		Category:   CategoryOf(name),
		Attributes: m.Attributes,
	}
	if m.SizeKnown && m.Size >= 0 {
		e.SizeBytes = m.Size
		e.SizeKnown = true
	}
	return e
}

// Ext returns the lower-cased extension including the dot.
func (e Entry) Ext() string { return strings.ToLower(filepath.Ext(e.Name)) }

// Status summarizes the outcome of a scan.
type Status string

const (
	StatusOK         Status = "ok"
	StatusEmpty      Status = "empty"
	StatusNotFound   Status = "not_found"
	StatusUnreadable Status = "unreadable"
)

// Catalog is the result of one scan. It is never modified after Scan returns.
type Catalog struct {
	Root       string
	ScanID     uuid.UUID
	Entries    []Entry
	Status     Status
	Err        error // root failure behind StatusNotFound / StatusUnreadable
	TotalBytes int64 // sum over entries with SizeKnown
	Dropped    int   // entries skipped because no metadata could be read
	ScannedAt  time.Time
	Duration   time.Duration
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Lookup returns the entry with the given path.
func (c *Catalog) Lookup(path string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	for _, e := range c.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}
