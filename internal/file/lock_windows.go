//go:build windows

package file

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

type Lock struct {
	file *os.File
}

func AcquireLock(path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		ol := new(windows.Overlapped)
		err = windows.LockFileEx(windows.Handle(f.Fd()),
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
		if err == nil {
			return &Lock{file: f}, nil
		}
		if !errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			_ = f.Close()
			return nil, err
		}
		if timeout == 0 || time.Now().After(deadline) {
			_ = f.Close()
			return nil, ErrLockHeld
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	ol := new(windows.Overlapped)
	err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol)
	_ = l.file.Close()
	l.file = nil
	return err
}
