//go:build !linux && !darwin && !windows

package fs

import (
	"errors"
	"os"
	"time"
)

var errNoNativeStat = errors.New("native stat not supported on this platform")

func nativeStat(string) (Metadata, error) { return Metadata{}, errNoNativeStat }

func creationTime(os.FileInfo) time.Time { return time.Time{} }
