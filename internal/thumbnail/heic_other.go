//go:build !(linux && cgo)

package thumbnail

import (
	"fmt"
	"image"
	"io"
)

// decodeHEIC is a stub where libde265 is not linked in
func decodeHEIC(r io.Reader) (image.Image, error) {
	return nil, fmt.Errorf("HEIC decoding not supported on this platform")
}

func heicSupported() bool {
	return false
}
