// +build windows

package objectstore

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isSharingViolation reports whether err indicates that a destination path
// could not be written because another process holds it open.
func isSharingViolation(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
