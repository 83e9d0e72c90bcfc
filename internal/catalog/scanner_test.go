package catalog

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/fs"
	"github.com/justyntemme/shelf/internal/thumbnail"
)

// stubAccessor wraps the OS accessor and rewrites results by base name.
type stubAccessor struct {
	real     fs.Accessor
	override map[string]func(fs.Metadata) fs.Metadata
}

func (s stubAccessor) Stat(path string) fs.Metadata {
	m := s.real.Stat(path)
	if fn, ok := s.override[filepath.Base(path)]; ok {
		return fn(m)
	}
	return m
}

func touch(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 32, 24))); err != nil {
		t.Fatal(err)
	}
}

func paths(c *Catalog) []string {
	var out []string
	for _, e := range c.Entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScan_ReturnsExactlyAllowListedChildren(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"), "x")
	touch(t, filepath.Join(root, "B.PNG"), "xx")
	touch(t, filepath.Join(root, "notes.txt"), "xxx")
	touch(t, filepath.Join(root, ".hidden.jpg"), "x")
	touch(t, filepath.Join(root, "sub", "nested.jpg"), "x")

	s := NewScanner(Options{Root: root})
	cat, err := s.Scan(context.Background(), MustExtFilter(ImageExtensions...))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{filepath.Join(root, "B.PNG"), filepath.Join(root, "a.jpg")}
	sort.Strings(want)
	if got := paths(cat); !equalStrings(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	if cat.Status != StatusOK {
		t.Errorf("status = %s, want ok", cat.Status)
	}
	if cat.TotalBytes != 3 {
		t.Errorf("TotalBytes = %d, want 3", cat.TotalBytes)
	}
	if s.Current() != cat {
		t.Error("Current should return the last catalog")
	}
}

func TestScan_NilFilterAllowsEverything(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"), "")
	touch(t, filepath.Join(root, "b.bin"), "")

	cat, err := NewScanner(Options{Root: root}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 2 {
		t.Errorf("got %d entries, want 2", cat.Len())
	}
}

func TestScan_EmptyAndMissingRoot(t *testing.T) {
	empty := t.TempDir()
	cat, err := NewScanner(Options{Root: empty}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Status != StatusEmpty || cat.Len() != 0 || cat.Err != nil {
		t.Errorf("empty root: status=%s len=%d err=%v", cat.Status, cat.Len(), cat.Err)
	}

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	cat, err = NewScanner(Options{Root: missing}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("missing root should not fail the scan: %v", err)
	}
	if cat.Status != StatusNotFound {
		t.Errorf("status = %s, want not_found", cat.Status)
	}
	if cat.Len() != 0 {
		t.Errorf("missing root produced %d entries", cat.Len())
	}
	if !errors.Is(cat.Err, errors.ErrNotFound) {
		t.Errorf("Err = %v, want ErrNotFound", cat.Err)
	}
}

func TestScan_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	touch(t, file, "x")
	cat, err := NewScanner(Options{Root: file}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Status != StatusUnreadable {
		t.Errorf("status = %s, want unreadable", cat.Status)
	}
}

func TestScan_TotalBytesSkipsUnknownSizes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "known.txt"), "12345")
	touch(t, filepath.Join(root, "mystery.txt"), "1234567890")

	acc := stubAccessor{
		real: fs.NewAccessor(),
		override: map[string]func(fs.Metadata) fs.Metadata{
			"mystery.txt": func(m fs.Metadata) fs.Metadata {
				m.Size, m.SizeKnown = 0, false
				return m
			},
		},
	}
	cat, err := NewScanner(Options{Root: root, Accessor: acc}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 2 {
		t.Fatalf("got %d entries, want 2", cat.Len())
	}
	if cat.TotalBytes != 5 {
		t.Errorf("TotalBytes = %d, want 5", cat.TotalBytes)
	}
	e, ok := cat.Lookup(filepath.Join(root, "mystery.txt"))
	if !ok || e.SizeKnown {
		t.Errorf("mystery.txt should be present with unknown size: %+v", e)
	}
}

func TestScan_DropsEntriesWithUnknownMetadata(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "ok.txt"), "x")
	touch(t, filepath.Join(root, "locked.txt"), "x")

	acc := stubAccessor{
		real: fs.NewAccessor(),
		override: map[string]func(fs.Metadata) fs.Metadata{
			"locked.txt": func(fs.Metadata) fs.Metadata {
				return fs.Metadata{Source: fs.SourceUnknown, Err: os.ErrPermission}
			},
		},
	}
	cat, err := NewScanner(Options{Root: root, Accessor: acc}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "ok.txt")}
	if got := paths(cat); !equalStrings(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	if cat.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", cat.Dropped)
	}
}

func TestScan_OrdersNewestCreatedFirst(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	created := map[string]time.Time{
		"old.jpg":    base,
		"new.jpg":    base.Add(48 * time.Hour),
		"mid.jpg":    base.Add(24 * time.Hour),
		"twin.jpg":   base.Add(24 * time.Hour),
		"nodate.jpg": {},
	}
	override := map[string]func(fs.Metadata) fs.Metadata{}
	for name, ts := range created {
		touch(t, filepath.Join(root, name), "x")
		ts := ts
		override[name] = func(m fs.Metadata) fs.Metadata {
			m.Created = ts
			return m
		}
	}

	s := NewScanner(Options{
		Root:     root,
		Accessor: stubAccessor{real: fs.NewAccessor(), override: override},
		Order:    NewestCreated,
	})
	cat, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, e := range cat.Entries {
		got = append(got, e.Name)
	}
	want := []string{"new.jpg", "mid.jpg", "twin.jpg", "old.jpg", "nodate.jpg"}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestScan_Recursive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "top.txt"), "")
	touch(t, filepath.Join(root, "a", "one.txt"), "")
	touch(t, filepath.Join(root, "a", "b", "two.txt"), "")

	cat, err := NewScanner(Options{Root: root, MaxDepth: 2}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "a", "one.txt"),
		filepath.Join(root, "top.txt"),
	}
	sort.Strings(want)
	if got := paths(cat); !equalStrings(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestScan_Thumbnails(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "good.png"))
	touch(t, filepath.Join(root, "bad.jpg"), "garbage")
	touch(t, filepath.Join(root, "readme.txt"), "hi")

	cache := thumbnail.NewCache(root, thumbnail.Options{})
	defer cache.Close()

	s := NewScanner(Options{Root: root, Thumbnails: cache, MaxDepth: 3, Workers: 2})
	cat, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 3 {
		t.Fatalf("got %d entries, want 3 (cache dir must not be listed)", cat.Len())
	}

	good, _ := cat.Lookup(filepath.Join(root, "good.png"))
	if good.ThumbnailRef == "" {
		t.Fatal("good.png has no thumbnail")
	}
	if _, err := os.Stat(good.ThumbnailRef); err != nil {
		t.Errorf("thumbnail missing on disk: %v", err)
	}
	bad, ok := cat.Lookup(filepath.Join(root, "bad.jpg"))
	if !ok || bad.ThumbnailRef != "" {
		t.Errorf("corrupt image should stay listed without a thumbnail: %+v", bad)
	}
	txt, _ := cat.Lookup(filepath.Join(root, "readme.txt"))
	if txt.ThumbnailRef != "" {
		t.Error("documents never get thumbnails")
	}

	// A second scan sees the same set even though .thumbnails now exists.
	again, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(paths(again), paths(cat)) {
		t.Errorf("rescan differs: %v vs %v", paths(again), paths(cat))
	}
	if again.ScanID == cat.ScanID {
		t.Error("each scan should get its own ID")
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.txt"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(Options{Root: root})
	cat, err := s.Scan(ctx, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled scan")
	}
	if cat != nil {
		t.Error("partial catalog should be discarded")
	}
	if s.Current() != nil {
		t.Error("cancelled scan must not replace the current catalog")
	}
}

func TestScan_ReportsProgress(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.txt"), "")

	updates := make(chan Update, 16)
	s := NewScanner(Options{Root: root, Progress: ChanProgress(updates)})
	if _, err := s.Scan(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	close(updates)

	var phases []Phase
	for u := range updates {
		phases = append(phases, u.Phase)
	}
	if len(phases) < 2 || phases[0] != PhaseStarted || phases[len(phases)-1] != PhaseFinished {
		t.Errorf("unexpected phases %v", phases)
	}
}

func TestCategoryOf(t *testing.T) {
	testCases := []struct {
		name string
		want Category
	}{
		{"Photo_20240101_120000.JPG", CategoryImage},
		{"song.mp3", CategoryAudio},
		{"clip.mkv", CategoryVideo},
		{"backup.7z", CategoryArchive},
		{"setup.exe", CategoryExecutable},
		{"report.pdf", CategoryDocument},
		{"data.json", CategoryDocument},
		{"Makefile", CategoryOther},
	}
	for _, tc := range testCases {
		if got := CategoryOf(tc.name); got != tc.want {
			t.Errorf("CategoryOf(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}
