//go:build windows

package fs

import (
	"os"

	"golang.org/x/sys/windows"
)

func diskUsage(path string) (DiskSpace, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskSpace{}, &os.PathError{Op: "GetDiskFreeSpaceEx", Path: path, Err: err}
	}

	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &available, &total, &free); err != nil {
		return DiskSpace{}, &os.PathError{Op: "GetDiskFreeSpaceEx", Path: path, Err: err}
	}

	ds := DiskSpace{Path: path, Total: total, Free: free, Available: available}

	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &buf[0], uint32(len(buf))); err == nil {
		ds.MountPoint = windows.UTF16ToString(buf)
	}
	return ds, nil
}
