package file

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	snapshotExt = ".snap"
	tempExt     = ".tmp"
	LockName    = "LOCK"
)

var ErrLockHeld = errors.New("file: lock held by another process")

func SnapshotName(seq uint64, width int) string {
	return fmt.Sprintf("%0*d%s", width, seq, snapshotExt)
}

// TempName is where a snapshot is written before it is renamed into place.
func TempName(seq uint64, width int) string {
	return SnapshotName(seq, width) + tempExt
}

func IsSnapshot(name string) bool {
	return strings.HasSuffix(name, snapshotExt)
}

func IsTemp(name string) bool {
	return strings.HasSuffix(name, snapshotExt+tempExt)
}

func ParseSeq(name string) (uint64, bool) {
	base := filepath.Base(name)
	if !IsSnapshot(base) {
		return 0, false
	}
	seq, err := strconv.ParseUint(strings.TrimSuffix(base, snapshotExt), 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
