// Package fileops implements the user-initiated mutations of a library root:
// create, rename, delete and delete-image. Errors are returned as
// *errors.Error so callers can show a reason; nothing is retried.
package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/logging"
	"github.com/justyntemme/shelf/internal/metrics"
)

// Common file permission modes
const (
	DirPermission  = 0o755
	FilePermission = 0o644
)

// Operation names used in errors and metrics.
const (
	OpCreate      = "create"
	OpRename      = "rename"
	OpDelete      = "delete"
	OpDeleteImage = "delete-image"
)

// CreateExtensions are the file types CreateFile accepts. The first one is
// used when no extension is given.
var CreateExtensions = []string{".txt", ".json", ".xml", ".html", ".csv", ".md"}

// invalidNameChars is the union of what Windows and Unix refuse in a name.
const invalidNameChars = `<>:"/\|?*`

// ThumbnailRemover drops the cached preview of a source image.
type ThumbnailRemover interface {
	Remove(ctx context.Context, src string) error
}

// Options configures a Mutator.
type Options struct {
	Root         string
	Thumbnails   ThumbnailRemover // nil disables thumbnail cleanup
	CacheDirName string           // protected from mutation; empty for none
}

// Mutator applies mutations inside one root.
type Mutator struct {
	root     string
	thumbs   ThumbnailRemover
	cacheDir string
}

// New creates a Mutator for opts.Root.
func New(opts Options) *Mutator {
	root := opts.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	root = filepath.Clean(root)

	m := &Mutator{root: root, thumbs: opts.Thumbnails}
	if opts.CacheDirName != "" {
		m.cacheDir = filepath.Join(root, opts.CacheDirName)
	}
	return m
}

// Root returns the directory mutations are confined to.
func (m *Mutator) Root() string { return m.root }

// CreateFile writes content to root/name+ext and returns the new path. An
// existing file is replaced only when overwrite is set.
func (m *Mutator) CreateFile(ctx context.Context, name, ext, content string, overwrite bool) (path string, err error) {
	defer func() { m.record(OpCreate, path, err) }()

	if err := ctx.Err(); err != nil {
		return "", errors.New(OpCreate, name, err)
	}

	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return "", errors.Newf(errors.KindInvalid, OpCreate, name, "%v", err)
	}
	ext, err = normalizeExt(ext)
	if err != nil {
		return "", errors.Newf(errors.KindInvalid, OpCreate, name, "%v", err)
	}

	// A name that already carries the extension is not doubled.
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	path = filepath.Join(m.root, name)

	if err := os.MkdirAll(m.root, DirPermission); err != nil {
		return "", errors.New(OpCreate, m.root, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, FilePermission)
	if err != nil {
		return "", errors.New(OpCreate, path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", errors.New(OpCreate, path, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.New(OpCreate, path, err)
	}

	return path, nil
}

// RenameFile renames oldPath to newName within the same directory and
// returns the new path. newName without an extension keeps the old one.
func (m *Mutator) RenameFile(ctx context.Context, oldPath, newName string) (path string, err error) {
	defer func() { m.record(OpRename, oldPath, err) }()

	if err := ctx.Err(); err != nil {
		return "", errors.New(OpRename, oldPath, err)
	}

	oldPath, err = m.Resolve(OpRename, oldPath)
	if err != nil {
		return "", err
	}
	newName = strings.TrimSpace(newName)
	if err := ValidateName(newName); err != nil {
		return "", errors.Newf(errors.KindInvalid, OpRename, oldPath, "%v", err)
	}
	if filepath.Ext(newName) == "" {
		newName += filepath.Ext(oldPath)
	}

	oldInfo, err := os.Lstat(oldPath)
	if err != nil {
		return "", errors.New(OpRename, oldPath, err)
	}
	if oldInfo.IsDir() {
		return "", errors.Newf(errors.KindInvalid, OpRename, oldPath, "is a directory")
	}

	path = filepath.Join(filepath.Dir(oldPath), newName)
	if path == oldPath {
		return path, nil
	}
	// On case-insensitive volumes a case-only rename sees itself.
	if newInfo, err := os.Lstat(path); err == nil && !os.SameFile(oldInfo, newInfo) {
		return "", errors.Newf(errors.KindAlreadyExists, OpRename, path, "destination already exists")
	}

	if err := os.Rename(oldPath, path); err != nil {
		return "", errors.New(OpRename, oldPath, err)
	}

	// Thumbnails are keyed by source name; the old one is now orphaned.
	if m.thumbs != nil && catalog.CategoryOf(oldPath) == catalog.CategoryImage {
		m.dropThumbnail(ctx, oldPath)
	}
	return path, nil
}

// DeleteFile removes a single file.
func (m *Mutator) DeleteFile(ctx context.Context, path string) (err error) {
	defer func() { m.record(OpDelete, path, err) }()
	return m.remove(ctx, OpDelete, path)
}

// DeleteImage removes an image and its cached thumbnail. A thumbnail that
// cannot be removed is logged; the image is already gone at that point.
func (m *Mutator) DeleteImage(ctx context.Context, path string) (err error) {
	defer func() { m.record(OpDeleteImage, path, err) }()

	if catalog.CategoryOf(path) != catalog.CategoryImage {
		return errors.Newf(errors.KindInvalid, OpDeleteImage, path, "not an image")
	}
	if err := m.remove(ctx, OpDeleteImage, path); err != nil {
		return err
	}
	if m.thumbs != nil {
		abs, _ := m.Resolve(OpDeleteImage, path)
		m.dropThumbnail(ctx, abs)
	}
	return nil
}

func (m *Mutator) remove(ctx context.Context, op, path string) error {
	if err := ctx.Err(); err != nil {
		return errors.New(op, path, err)
	}
	abs, err := m.Resolve(op, path)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return errors.New(op, abs, err)
	}
	if info.IsDir() {
		return errors.Newf(errors.KindInvalid, op, abs, "is a directory")
	}
	if err := os.Remove(abs); err != nil {
		return errors.New(op, abs, err)
	}
	return nil
}

func (m *Mutator) dropThumbnail(ctx context.Context, src string) {
	if err := m.thumbs.Remove(ctx, src); err != nil {
		logging.Warn("failed to remove thumbnail",
			logging.String("source", src),
			logging.Err(err),
		)
	}
}

// Resolve confines path to the root: a relative path is joined to it, and
// the root itself, anything outside it, or inside the thumbnail cache is
// refused with kind AccessDenied.
func (m *Mutator) Resolve(op, path string) (string, error) {
	if path == "" {
		return "", errors.Newf(errors.KindInvalid, op, path, "empty path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	path = filepath.Clean(path)

	if !within(m.root, path) || path == m.root {
		return "", errors.Newf(errors.KindAccessDenied, op, path, "outside of %s", m.root)
	}
	if m.cacheDir != "" && within(m.cacheDir, path) {
		return "", errors.Newf(errors.KindAccessDenied, op, path, "inside the thumbnail cache")
	}
	return path, nil
}

func (m *Mutator) record(op, path string, err error) {
	metrics.RecordMutation(op, err)
	if err != nil {
		logging.Warn("mutation failed",
			logging.String("op", op),
			logging.String("path", path),
			logging.String("kind", string(errors.KindOf(err))),
			logging.Err(err),
		)
		return
	}
	debug.Log(debug.OPS, "%s %s ok", op, path)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateName rejects names that cannot be a single path element.
func ValidateName(name string) error {
	switch name {
	case "":
		return fmt.Errorf("name is empty")
	case ".", "..":
		return fmt.Errorf("name is reserved")
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("name contains invalid characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains invalid characters")
		}
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return fmt.Errorf("name cannot end with a dot or space")
	}
	return nil
}

func normalizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return CreateExtensions[0], nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !slices.Contains(CreateExtensions, ext) {
		return "", fmt.Errorf("unsupported file type %s", ext)
	}
	return ext, nil
}
