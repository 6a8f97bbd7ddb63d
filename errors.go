package artree

import "errors"

var (
	ErrClosed        = errors.New("artree: tree closed")
	ErrOversized     = errors.New("artree: key exceeds max size")
	ErrInvalidHandle = errors.New("artree: invalid handle")
	ErrCorrupt       = errors.New("artree: corrupt snapshot")
	ErrLocked        = errors.New("artree: snapshot directory is locked")
)
