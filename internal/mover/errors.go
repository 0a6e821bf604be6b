package mover

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"

	"filer/internal/fileutil"
)

var (
	// ErrRetriesExhausted marks a transient failure that persisted past the retry budget.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrCopyVerification marks a cross-device copy whose size or hash did not match.
	ErrCopyVerification = fileutil.ErrVerification
)

type errorClass int

const (
	classFatal errorClass = iota
	classTransient
	classCollision
	classCrossDevice
	classNotExist
)

func (c errorClass) String() string {
	switch c {
	case classTransient:
		return "transient"
	case classCollision:
		return "collision"
	case classCrossDevice:
		return "cross_device"
	case classNotExist:
		return "not_exist"
	default:
		return "fatal"
	}
}

func classify(err error) errorClass {
	switch {
	case err == nil:
		return classFatal
	case errors.Is(err, unix.EXDEV):
		return classCrossDevice
	case errors.Is(err, fs.ErrExist), errors.Is(err, unix.ENOTEMPTY):
		return classCollision
	case errors.Is(err, fs.ErrNotExist):
		return classNotExist
	case isTransient(err):
		return classTransient
	default:
		return classFatal
	}
}

func isTransient(err error) bool {
	for _, errno := range []unix.Errno{unix.EBUSY, unix.EACCES, unix.EPERM, unix.ETXTBSY, unix.EAGAIN} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
