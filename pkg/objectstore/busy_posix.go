// +build !windows

package objectstore

import (
	"errors"
	"syscall"
)

// isSharingViolation reports whether err indicates that a destination path
// could not be written because another process holds it open.
func isSharingViolation(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ETXTBSY)
}
