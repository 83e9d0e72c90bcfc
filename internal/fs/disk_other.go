//go:build !linux && !darwin && !windows

package fs

import (
	"errors"
	"os"
)

func diskUsage(path string) (DiskSpace, error) {
	return DiskSpace{}, &os.PathError{Op: "statfs", Path: path, Err: errors.ErrUnsupported}
}
