package thumbnail

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/justyntemme/shelf/internal/errors"
)

// ImageInfo describes a source image without decoding its pixels, except
// for HEIC, which has no config-only decoder.
type ImageInfo struct {
	Width, Height int
	Format        string
	Orientation   int       // EXIF orientation, 1 when absent
	Taken         time.Time // EXIF DateTimeOriginal, zero when absent
	Camera        string    // EXIF make and model
}

// Inspect reads the dimensions and EXIF details of path. Unreadable or
// undecodable files fail with kind NotFound, AccessDenied or Corrupt.
func Inspect(path string) (ImageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageInfo{}, errors.New("inspect", path, err)
	}

	var info ImageInfo
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".heic" || ext == ".heif" {
		img, err := decode(path, data)
		if err != nil {
			return ImageInfo{}, &errors.Error{Op: "inspect", Path: path, Kind: errors.KindCorrupt, Err: err}
		}
		info.Width, info.Height = img.Bounds().Dx(), img.Bounds().Dy()
		info.Format = "heic"
	} else {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return ImageInfo{}, &errors.Error{Op: "inspect", Path: path, Kind: errors.KindCorrupt, Err: err}
		}
		info.Width, info.Height, info.Format = cfg.Width, cfg.Height, format
	}

	info.Orientation = orientation(data)
	if info.Orientation >= 5 {
		// Rotated by 90 degrees when displayed.
		info.Width, info.Height = info.Height, info.Width
	}

	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		if t, err := x.DateTime(); err == nil {
			info.Taken = t
		}
		var parts []string
		for _, name := range []exif.FieldName{exif.Make, exif.Model} {
			if tag, err := x.Get(name); err == nil {
				if v, err := tag.StringVal(); err == nil && strings.TrimSpace(v) != "" {
					parts = append(parts, strings.TrimSpace(v))
				}
			}
		}
		info.Camera = strings.Join(parts, " ")
	}
	return info, nil
}
