//go:build linux

package fs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

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
		MountPoint: mountPointFor(path),
		Total:      st.Blocks * bsize,
		Free:       st.Bfree * bsize,
		Available:  st.Bavail * bsize,
	}, nil
}

// mountPointFor returns the longest mount point in /proc/mounts that
// contains path.
func mountPointFor(path string) string {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return ""
	}
	defer file.Close()

	best := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Octal escapes for spaces in mount points
		mountPoint := strings.ReplaceAll(fields[1], `\040`, " ")
		if !within(path, mountPoint) {
			continue
		}
		if len(mountPoint) > len(best) {
			best = mountPoint
		}
	}
	return best
}

func within(path, mountPoint string) bool {
	if mountPoint == "/" {
		return true
	}
	rel, err := filepath.Rel(mountPoint, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
