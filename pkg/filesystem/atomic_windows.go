// +build windows

package filesystem

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// isCrossDeviceError returns true if the specified error (returned by
// os.Rename) represents a cross-device rename failure, in which case the
// caller should fall back to a copy-and-remove strategy.
func isCrossDeviceError(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return linkErr.Err == windows.ERROR_NOT_SAME_DEVICE
}
