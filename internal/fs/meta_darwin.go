//go:build darwin

package fs

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// nativeStat opens the entry read-only and queries the descriptor with fstat.
func nativeStat(path string) (Metadata, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return Metadata{}, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return Metadata{}, &os.PathError{Op: "fstat", Path: path, Err: err}
	}

	m := Metadata{
		Size:      st.Size,
		SizeKnown: true,
		Modified:  time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
	}
	if st.Btim.Sec != 0 {
		m.Created = time.Unix(st.Btim.Sec, st.Btim.Nsec)
	}
	if uint32(st.Mode)&unix.S_IFMT == unix.S_IFDIR {
		m.Attributes |= AttrDir
	}
	if st.Mode&0o222 == 0 {
		m.Attributes |= AttrReadOnly
	}
	if st.Flags&unix.UF_HIDDEN != 0 {
		m.Attributes |= AttrHidden
	}
	if st.Flags&(unix.UF_IMMUTABLE|unix.SF_IMMUTABLE) != 0 {
		m.Attributes |= AttrReadOnly
	}
	if st.Flags&unix.SF_ARCHIVED != 0 {
		m.Attributes |= AttrArchive
	}
	if base := filepath.Base(path); len(base) > 0 && base[0] == '.' {
		m.Attributes |= AttrHidden
	}
	return m, nil
}

func creationTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok && st.Birthtimespec.Sec != 0 {
		return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	}
	return time.Time{}
}
