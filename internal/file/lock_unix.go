//go:build !windows

package file

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

type Lock struct {
	file *os.File
}

// AcquireLock takes an exclusive flock on path, creating it if needed. With a
// zero timeout it fails immediately when another holder exists.
func AcquireLock(path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{file: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
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
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
	return err
}
