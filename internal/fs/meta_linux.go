//go:build linux

package fs

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// nativeStat opens an O_PATH descriptor and queries it with statx, which is
// the only Linux facility that reports birth time.
func nativeStat(path string) (Metadata, error) {
	fd, err := unix.Open(path, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return Metadata{}, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	var stx unix.Statx_t
	mask := unix.STATX_BASIC_STATS | unix.STATX_BTIME
	if err := unix.Statx(fd, "", unix.AT_EMPTY_PATH, mask, &stx); err != nil {
		return Metadata{}, &os.PathError{Op: "statx", Path: path, Err: err}
	}

	m := Metadata{}
	if stx.Mask&unix.STATX_SIZE != 0 {
		m.Size = int64(stx.Size)
		m.SizeKnown = true
	}
	if stx.Mask&unix.STATX_MTIME != 0 {
		m.Modified = statxTime(stx.Mtime)
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		m.Created = statxTime(stx.Btime)
	}

	switch uint32(stx.Mode) & unix.S_IFMT {
	case unix.S_IFDIR:
		m.Attributes |= AttrDir
	case unix.S_IFLNK:
		m.Attributes |= AttrSymlink
	}
	if stx.Mode&0o222 == 0 {
		m.Attributes |= AttrReadOnly
	}
	if stx.Attributes&unix.STATX_ATTR_IMMUTABLE != 0 {
		m.Attributes |= AttrReadOnly | AttrSystem
	}
	if base := filepath.Base(path); len(base) > 0 && base[0] == '.' {
		m.Attributes |= AttrHidden
	}
	return m, nil
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	if ts.Sec == 0 && ts.Nsec == 0 {
		return time.Time{}
	}
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

// creationTime is unavailable from os.Stat on Linux.
func creationTime(os.FileInfo) time.Time { return time.Time{} }
