// Package objectstore implements the content-addressable blob store: a
// deduplicating, Brotli-compressed repository of immutable byte sequences
// keyed by SHA-256 digest.
package objectstore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/draftvcs/draft/pkg/compression"
	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/filesystem"
)

const blobPermissions = 0600

// Store provides ingest and extraction facilities for the blob directory
// rooted at dir (normally a repository's objects subdirectory). Reference
// counting is deliberately not performed here: Store only knows how to get
// bytes in and out of content-addressed storage, and callers (the snapshot
// and garbage collection engines) own the refcount bookkeeping in the
// repository index.
type Store struct {
	dir string
}

// New creates a Store rooted at the specified objects directory. The
// directory must already exist.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// path returns the on-disk path for a blob, which is flat and keyed solely
// on the digest's hex encoding (no algorithm prefix, no sharding) — this is
// a bit-exact, versioned on-disk format invariant.
func (s *Store) path(h digest.Digest) string {
	return filepath.Join(s.dir, h.Encoded())
}

// Ingest streams sourcePath through a single-pass tee of a SHA-256 digester
// and a Brotli compressor, returning the content digest along with the
// original (uncompressed) and stored (compressed) sizes. If a blob with the
// resulting digest already exists, the freshly compressed temporary data is
// discarded and the existing blob's stored size is reported instead —
// Ingest never rewrites an existing blob, and refcount accounting is left
// entirely to the caller.
func (s *Store) Ingest(sourcePath string) (h digest.Digest, originalSize, storedSize int64, err error) {
	source, err := os.Open(sourcePath)
	if err != nil {
		return "", 0, 0, &errs.IoError{Path: sourcePath, Err: err}
	}
	defer source.Close()

	temporary, err := os.CreateTemp(s.dir, ".draft-ingest")
	if err != nil {
		return "", 0, 0, &errs.IoError{Path: s.dir, Err: err}
	}
	temporaryPath := temporary.Name()
	defer func() {
		temporary.Close()
		os.Remove(temporaryPath)
	}()

	digester := digest.Canonical.Digester()
	compressor := compression.NewCompressingWriter(temporary)
	tee := io.TeeReader(source, digester.Hash())

	written, copyErr := io.Copy(compressor, tee)
	if copyErr != nil {
		return "", 0, 0, &errs.IoError{Path: sourcePath, Err: copyErr}
	}
	if closeErr := compressor.Close(); closeErr != nil {
		return "", 0, 0, &errs.IoError{Path: sourcePath, Err: closeErr}
	}

	h = digester.Digest()
	originalSize = written

	finalPath := s.path(h)
	if info, statErr := os.Stat(finalPath); statErr == nil {
		return h, originalSize, info.Size(), nil
	} else if !os.IsNotExist(statErr) {
		return "", 0, 0, &errs.IoError{Path: finalPath, Err: statErr}
	}

	if err := temporary.Close(); err != nil {
		return "", 0, 0, &errs.IoError{Path: temporaryPath, Err: err}
	}
	if err := os.Chmod(temporaryPath, blobPermissions); err != nil {
		return "", 0, 0, &errs.IoError{Path: temporaryPath, Err: err}
	}
	if err := os.Rename(temporaryPath, finalPath); err != nil {
		if copyErr := copyFile(temporaryPath, finalPath); copyErr != nil {
			return "", 0, 0, &errs.IoError{Path: finalPath, Err: copyErr}
		}
		os.Remove(temporaryPath)
	}

	info, statErr := os.Stat(finalPath)
	if statErr != nil {
		return "", 0, 0, &errs.IoError{Path: finalPath, Err: statErr}
	}

	return h, originalSize, info.Size(), nil
}

// Extract writes the blob identified by h to destPath, decompressing it
// first unless isCompressed is false (a legacy fallback for blobs ingested
// before compression was mandatory). The destination is written via
// temp-then-rename, so a failure partway through leaves destPath either
// absent or exactly as it was before the call.
func (s *Store) Extract(h digest.Digest, destPath string, isCompressed bool) error {
	sourcePath := s.path(h)
	source, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &errs.MissingBlob{Hash: h.String()}
		}
		return &errs.IoError{Path: sourcePath, Err: err}
	}
	defer source.Close()

	var reader io.Reader = source
	if isCompressed {
		reader = compression.NewDecompressingReader(source)
	}

	err = filesystem.WriteAtomic(destPath, blobPermissions, func(w io.Writer) error {
		_, copyErr := io.Copy(w, reader)
		return copyErr
	})
	if err != nil {
		if busy := asDestinationBusy(destPath, err); busy != nil {
			return busy
		}
		return &errs.IoError{Path: destPath, Err: err}
	}
	return nil
}

// Exists reports whether a blob with the specified digest is present.
func (s *Store) Exists(h digest.Digest) bool {
	_, err := os.Stat(s.path(h))
	return err == nil
}

// Remove unlinks the blob identified by h. It is a no-op (not an error) if
// the blob is already absent.
func (s *Store) Remove(h digest.Digest) error {
	if err := os.Remove(s.path(h)); err != nil && !os.IsNotExist(err) {
		return &errs.IoError{Path: s.path(h), Err: err}
	}
	return nil
}

// Stat returns the stored (on-disk, possibly compressed) size of a blob.
func (s *Store) Stat(h digest.Digest) (int64, error) {
	info, err := os.Stat(s.path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &errs.MissingBlob{Hash: h.String()}
		}
		return 0, &errs.IoError{Path: s.path(h), Err: err}
	}
	return info.Size(), nil
}

func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, blobPermissions)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// asDestinationBusy inspects err for the platform-specific "file is in use"
// conditions (EBUSY/EPERM and their Windows equivalents, surfaced through
// os.PathError) and, if matched, returns a structured DestinationBusy
// error. It returns nil if err does not indicate a sharing violation.
func asDestinationBusy(path string, err error) error {
	if isSharingViolation(err) {
		return &errs.DestinationBusy{Path: path, OSCode: err}
	}
	return nil
}
