package thumbnail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justyntemme/shelf/internal/errors"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writePNG(t, src, 64, 32)

	info, err := Inspect(src)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Width != 64 || info.Height != 32 || info.Format != "png" {
		t.Errorf("got %dx%d %s, want 64x32 png", info.Width, info.Height, info.Format)
	}
	if info.Orientation != 1 || !info.Taken.IsZero() || info.Camera != "" {
		t.Errorf("PNG without EXIF reported %+v", info)
	}
}

func TestInspect_Errors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(broken, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		path string
		want error
	}{
		{"corrupt", broken, errors.ErrCorrupt},
		{"missing", filepath.Join(dir, "ghost.png"), errors.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Inspect(tc.path); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
