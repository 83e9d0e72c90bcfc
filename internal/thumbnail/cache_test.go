package thumbnail

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/shelf/internal/errors"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	root := t.TempDir()
	c := NewCache(root, Options{})
	t.Cleanup(func() { c.Close() })
	return c, root
}

// ageFile pushes a file's mtime into the past so a rewrite is observable.
func ageFile(t *testing.T, path string) time.Time {
	t.Helper()
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	return past
}

func modTime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info.ModTime()
}

func thumbSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestGetOrCreate_FitsBox(t *testing.T) {
	testCases := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 400, 300, 200, 150},
		{"portrait", 300, 600, 100, 200},
		{"square", 500, 500, 200, 200},
		{"small is not upscaled", 50, 40, 50, 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, root := newTestCache(t)
			src := filepath.Join(root, "img.png")
			writePNG(t, src, tc.w, tc.h)

			thumb, err := c.GetOrCreate(context.Background(), src)
			if err != nil {
				t.Fatalf("GetOrCreate: %v", err)
			}
			if filepath.Dir(thumb) != filepath.Join(root, DefaultDirName) {
				t.Errorf("thumbnail outside cache dir: %s", thumb)
			}
			w, h := thumbSize(t, thumb)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	c, root := newTestCache(t)
	src := filepath.Join(root, "Photo_20240101_120000.png")
	writePNG(t, src, 320, 240)
	ctx := context.Background()

	first, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	before := ageFile(t, first)

	second, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if got := modTime(t, second); !got.Equal(before) {
		t.Errorf("thumbnail was re-encoded: mtime %v, want %v", got, before)
	}
}

func TestGetOrCreate_StaleSourceRegenerates(t *testing.T) {
	c, root := newTestCache(t)
	src := filepath.Join(root, "a.png")
	writePNG(t, src, 100, 100)
	ctx := context.Background()

	thumb, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	before := ageFile(t, thumb)

	// Replace the source with a different image and a new mtime.
	writePNG(t, src, 400, 100)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}

	again, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if modTime(t, again).Equal(before) {
		t.Error("stale thumbnail was served")
	}
	if w, h := thumbSize(t, again); w != 200 || h != 50 {
		t.Errorf("got %dx%d, want 200x50", w, h)
	}
}

func TestGetOrCreate_Corrupt(t *testing.T) {
	c, root := newTestCache(t)
	src := filepath.Join(root, "broken.jpg")
	if err := os.WriteFile(src, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := c.GetOrCreate(context.Background(), src)
	if !errors.Is(err, errors.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if _, err := os.Stat(c.PathFor(src)); !os.IsNotExist(err) {
		t.Error("no thumbnail should be written for a corrupt source")
	}
}

func TestGetOrCreate_MissingSource(t *testing.T) {
	c, root := newTestCache(t)
	_, err := c.GetOrCreate(context.Background(), filepath.Join(root, "gone.png"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	c, root := newTestCache(t)
	src := filepath.Join(root, "shared.png")
	writePNG(t, src, 300, 300)

	var wg sync.WaitGroup
	paths := make([]string, 8)
	errs := make([]error, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = c.GetOrCreate(context.Background(), src)
		}(i)
	}
	wg.Wait()

	for i := range paths {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Errorf("call %d returned %q, want %q", i, paths[i], paths[0])
		}
	}
}

func TestGetOrCreate_AdoptsWithoutIndex(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "kept.png")
	writePNG(t, src, 120, 80)
	ctx := context.Background()

	c := NewCache(root, Options{})
	thumb, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	matches, _ := filepath.Glob(filepath.Join(c.Dir(), indexFile+"*"))
	for _, m := range matches {
		os.Remove(m)
	}
	stamp := modTime(t, thumb)

	fresh := NewCache(root, Options{})
	defer fresh.Close()
	again, err := fresh.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if again != thumb {
		t.Errorf("got %q, want %q", again, thumb)
	}
	if !modTime(t, again).Equal(stamp) {
		t.Error("cache file should have been adopted, not regenerated")
	}
}

func TestRemove(t *testing.T) {
	c, root := newTestCache(t)
	src := filepath.Join(root, "del.png")
	writePNG(t, src, 64, 64)
	ctx := context.Background()

	thumb, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(ctx, src); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(thumb); !os.IsNotExist(err) {
		t.Error("thumbnail still on disk")
	}
	if c.memo.len() != 0 {
		t.Error("memo still holds the row")
	}
	if err := c.Remove(ctx, src); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	c, root := newTestCache(t)
	ctx := context.Background()

	keep := filepath.Join(root, "keep.png")
	drop := filepath.Join(root, "drop.png")
	writePNG(t, keep, 50, 50)
	writePNG(t, drop, 50, 50)
	for _, src := range []string{keep, drop} {
		if _, err := c.GetOrCreate(ctx, src); err != nil {
			t.Fatal(err)
		}
	}
	// An unindexed orphan left behind by an older cache.
	orphan := filepath.Join(c.Dir(), "ghost.png"+thumbSuffix)
	if err := os.WriteFile(orphan, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(drop); err != nil {
		t.Fatal(err)
	}

	n, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, err := os.Stat(c.PathFor(keep)); err != nil {
		t.Error("thumbnail of existing source was pruned")
	}
	for _, gone := range []string{c.PathFor(drop), orphan} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should be pruned", gone)
		}
	}
}

func writeSolidPNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func centerPixel(t *testing.T, path string) (r, b uint32) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	bounds := img.Bounds()
	r, _, b, _ = img.At(bounds.Dx()/2, bounds.Dy()/2).RGBA()
	return r >> 8, b >> 8
}

func TestPathFor(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "lib", "photos")
	c := NewCache(root, Options{})
	dir := c.Dir()

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"top level keeps base name", filepath.Join(root, "x.png"), "x.png" + thumbSuffix},
		{"nested", filepath.Join(root, "a", "x.png"), "a%2Fx.png" + thumbSuffix},
		{"percent escaped", filepath.Join(root, "a%2Fx.png"), "a%252Fx.png" + thumbSuffix},
		{"outside root", filepath.Join(string(filepath.Separator), "elsewhere", "x.png"), "%2Felsewhere%2Fx.png" + thumbSuffix},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.PathFor(tc.src)
			if got != filepath.Join(dir, tc.want) {
				t.Errorf("PathFor(%q) = %q, want %q", tc.src, got, filepath.Join(dir, tc.want))
			}
			if back := c.sourceFor(filepath.Base(got)); back != filepath.Clean(tc.src) {
				t.Errorf("sourceFor(%q) = %q, want %q", filepath.Base(got), back, tc.src)
			}
		})
	}
}

func TestGetOrCreate_SameNameInSubdirs(t *testing.T) {
	c, root := newTestCache(t)
	ctx := context.Background()

	red := filepath.Join(root, "a", "x.png")
	blue := filepath.Join(root, "b", "x.png")
	writeSolidPNG(t, red, color.RGBA{255, 0, 0, 255})
	writeSolidPNG(t, blue, color.RGBA{0, 0, 255, 255})

	redThumb, err := c.GetOrCreate(ctx, red)
	if err != nil {
		t.Fatal(err)
	}
	blueThumb, err := c.GetOrCreate(ctx, blue)
	if err != nil {
		t.Fatal(err)
	}
	if redThumb == blueThumb {
		t.Fatalf("both sources share %s", redThumb)
	}
	if r, b := centerPixel(t, redThumb); r < 200 || b > 50 {
		t.Errorf("a/x.png preview is not red: r=%d b=%d", r, b)
	}
	if r, b := centerPixel(t, blueThumb); b < 200 || r > 50 {
		t.Errorf("b/x.png preview is not blue: r=%d b=%d", r, b)
	}

	if err := c.Remove(ctx, red); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(blueThumb); err != nil {
		t.Errorf("removing a/x.png dropped the other preview: %v", err)
	}
}

func TestPrune_NestedOrphans(t *testing.T) {
	c, root := newTestCache(t)
	ctx := context.Background()

	live := filepath.Join(root, "a", "x.png")
	writeSolidPNG(t, live, color.White)
	if err := os.MkdirAll(c.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	// Unindexed files: one whose nested source exists, one whose source is gone.
	kept := c.PathFor(live)
	gone := c.PathFor(filepath.Join(root, "b", "x.png"))
	for _, p := range []string{kept, gone} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Error("preview of a/x.png was pruned")
	}
	if _, err := os.Stat(gone); !os.IsNotExist(err) {
		t.Error("orphan of b/x.png survived")
	}
}

func TestApplyOrientation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	testCases := []struct {
		orientation int
		w, h        int
	}{
		{1, 4, 2},
		{3, 4, 2},
		{6, 2, 4},
		{8, 2, 4},
	}
	for _, tc := range testCases {
		b := applyOrientation(img, tc.orientation).Bounds()
		if b.Dx() != tc.w || b.Dy() != tc.h {
			t.Errorf("orientation %d: got %dx%d, want %dx%d", tc.orientation, b.Dx(), b.Dy(), tc.w, tc.h)
		}
	}
}

func TestIsThumbnailable(t *testing.T) {
	testCases := []struct {
		ext  string
		want bool
	}{
		{".jpg", true},
		{"JPEG", true},
		{".png", true},
		{".bmp", true},
		{".gif", true},
		{".webp", true},
		{".txt", false},
		{"", false},
	}
	for _, tc := range testCases {
		if got := IsThumbnailable(tc.ext); got != tc.want {
			t.Errorf("IsThumbnailable(%q) = %v, want %v", tc.ext, got, tc.want)
		}
	}
}
