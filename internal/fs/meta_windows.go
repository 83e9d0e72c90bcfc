//go:build windows

package fs

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// nativeStat opens a handle with CreateFile and reads it with
// GetFileInformationByHandle. FILE_FLAG_BACKUP_SEMANTICS lets the same call
// open directories.
func nativeStat(path string) (Metadata, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return Metadata{}, &os.PathError{Op: "open", Path: path, Err: err}
	}
	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return Metadata{}, &os.PathError{Op: "CreateFile", Path: path, Err: err}
	}
	defer windows.CloseHandle(h)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		return Metadata{}, &os.PathError{Op: "GetFileInformationByHandle", Path: path, Err: err}
	}

	m := Metadata{
		Size:       int64(info.FileSizeHigh)<<32 | int64(info.FileSizeLow),
		SizeKnown:  true,
		Created:    filetime(info.CreationTime),
		Modified:   filetime(info.LastWriteTime),
		Attributes: fromWin32Attributes(info.FileAttributes),
	}
	if base := filepath.Base(path); len(base) > 0 && base[0] == '.' {
		m.Attributes |= AttrHidden
	}
	return m, nil
}

func fromWin32Attributes(a uint32) Attr {
	var out Attr
	if a&windows.FILE_ATTRIBUTE_READONLY != 0 {
		out |= AttrReadOnly
	}
	if a&windows.FILE_ATTRIBUTE_HIDDEN != 0 {
		out |= AttrHidden
	}
	if a&windows.FILE_ATTRIBUTE_SYSTEM != 0 {
		out |= AttrSystem
	}
	if a&windows.FILE_ATTRIBUTE_ARCHIVE != 0 {
		out |= AttrArchive
	}
	if a&windows.FILE_ATTRIBUTE_DIRECTORY != 0 {
		out |= AttrDir
	}
	if a&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		out |= AttrSymlink
	}
	return out
}

func filetime(ft windows.Filetime) time.Time {
	if ft.HighDateTime == 0 && ft.LowDateTime == 0 {
		return time.Time{}
	}
	return time.Unix(0, ft.Nanoseconds())
}

func creationTime(info os.FileInfo) time.Time {
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, d.CreationTime.Nanoseconds())
	}
	return time.Time{}
}
