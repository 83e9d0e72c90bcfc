package fs

import "path/filepath"

// DiskSpace describes the volume holding a path.
type DiskSpace struct {
	Path       string // path that was queried
	MountPoint string // root of the containing volume, "" when unknown
	Total      uint64
	Free       uint64 // free bytes including those reserved for root
	Available  uint64 // free bytes usable by the caller
}

// Used returns Total minus Free.
func (d DiskSpace) Used() uint64 {
	if d.Free > d.Total {
		return 0
	}
	return d.Total - d.Free
}

// DiskUsage reports free and total bytes for the volume containing path.
func DiskUsage(path string) (DiskSpace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DiskSpace{}, err
	}
	return diskUsage(abs)
}
