package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// atomicWriteTemporaryNamePrefix is the file name prefix used for
	// intermediate temporary files created during atomic writes.
	atomicWriteTemporaryNamePrefix = ".draft-atomic-write"
)

// WriteFileAtomic writes data to path in an atomic fashion: it writes to an
// intermediate temporary file in the same directory and then renames that
// file into place. A crash or failure partway through leaves any prior
// contents at path untouched.
func WriteFileAtomic(path string, data []byte, permissions os.FileMode) error {
	return WriteAtomic(path, permissions, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic streams content through write into an intermediate temporary
// file in path's directory, then renames that file into place, following
// the same write-to-temp-then-rename discipline as WriteFileAtomic but
// without requiring the full content to be buffered in memory first. It is
// used for large, streamed writes such as object store blobs and restored
// working-tree files.
func WriteAtomic(path string, permissions os.FileMode, write func(io.Writer) error) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), atomicWriteTemporaryNamePrefix)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	temporaryPath := temporary.Name()

	if err := write(temporary); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("unable to write data to temporary file: %w", err)
	}

	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("unable to close temporary file: %w", err)
	}

	if err := os.Chmod(temporaryPath, permissions); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("unable to change file permissions: %w", err)
	}

	if err := renameOrCopy(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("unable to rename file into place: %w", err)
	}

	return nil
}

// renameOrCopy renames source to destination, falling back to a copy (and
// then removing source) if the rename fails because source and destination
// live on different devices. A draft root may legitimately be configured
// outside the project tree, so this case can't be ruled out the way it
// could be for a same-filesystem temporary file.
func renameOrCopy(source, destination string) error {
	err := os.Rename(source, destination)
	if err == nil {
		return nil
	}
	if !isCrossDeviceError(err) {
		return err
	}

	input, openErr := os.Open(source)
	if openErr != nil {
		return err
	}
	defer input.Close()

	output, createErr := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if createErr != nil {
		return err
	}
	defer output.Close()

	if _, copyErr := io.Copy(output, input); copyErr != nil {
		return copyErr
	}
	return os.Remove(source)
}
