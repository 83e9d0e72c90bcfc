//go:build darwin

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

func diskUsage(path string) (DiskSpace, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskSpace{}, &os.PathError{Op: "statfs", Path: path, Err: err}
	}
	bsize := uint64(st.Bsize)
	return DiskSpace{
		Path:       path,
		MountPoint: unix.ByteSliceToString(st.Mntonname[:]),
		Total:      st.Blocks * bsize,
		Free:       st.Bfree * bsize,
		Available:  st.Bavail * bsize,
	}, nil
}
