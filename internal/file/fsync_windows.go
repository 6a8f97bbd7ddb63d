//go:build windows

package file

// FsyncDir is a no-op on Windows, where directories cannot be opened for sync.
func FsyncDir(string) error {
	return nil
}
