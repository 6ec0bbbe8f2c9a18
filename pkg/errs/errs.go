// Package errs implements the engine's structured error taxonomy. The
// component packages fail with one of these types (or a wrapped variant)
// so that callers can recover the diagnostic context with errors.As
// instead of parsing a message. Errors that originate in pkg/repository
// (initializing, opening or locating a repository, loading or saving its
// index) are wrapped with github.com/pkg/errors or fmt and are not of
// these types.
package errs

import (
	"fmt"
)

// VersionNotFound indicates that a referenced version manifest does not
// exist.
type VersionNotFound struct {
	ID string
}

func (e *VersionNotFound) Error() string {
	return fmt.Sprintf("version not found: %s", e.ID)
}

// FileNotFoundInVersion indicates that a path was requested from a version
// manifest that does not reference it.
type FileNotFoundInVersion struct {
	ID   string
	Path string
}

func (e *FileNotFoundInVersion) Error() string {
	return fmt.Sprintf("file %q not found in version %s", e.Path, e.ID)
}

// MissingBlob indicates that the object store index or a manifest
// references a hash with no corresponding blob on disk.
type MissingBlob struct {
	Hash string
}

func (e *MissingBlob) Error() string {
	return fmt.Sprintf("missing blob: %s", e.Hash)
}

// InvalidPath indicates that a path supplied to the engine is empty,
// absolute where a relative path was required, or otherwise malformed.
type InvalidPath struct {
	Path   string
	Reason string
}

func (e *InvalidPath) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid path: %s", e.Reason)
	}
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// CorruptManifest indicates that a version manifest file exists but could
// not be parsed or fails basic structural validation.
type CorruptManifest struct {
	ID  string
	Err error
}

func (e *CorruptManifest) Error() string {
	return fmt.Sprintf("corrupt manifest %s: %v", e.ID, e.Err)
}

func (e *CorruptManifest) Unwrap() error {
	return e.Err
}

// CorruptIndex indicates that the repository index file exists but could
// not be parsed.
type CorruptIndex struct {
	Err error
}

func (e *CorruptIndex) Error() string {
	return fmt.Sprintf("corrupt repository index: %v", e.Err)
}

func (e *CorruptIndex) Unwrap() error {
	return e.Err
}

// DestinationBusy indicates that a restore or extract operation could not
// write to a destination path because another process holds it open. It is
// retriable: the caller may re-run the operation, and unchanged targets are
// cheap to re-verify by hash.
type DestinationBusy struct {
	Path   string
	OSCode error
}

func (e *DestinationBusy) Error() string {
	return fmt.Sprintf("destination busy: %s (%v)", e.Path, e.OSCode)
}

func (e *DestinationBusy) Unwrap() error {
	return e.OSCode
}

// IntegrityError indicates that a blob exists but its size or hash does not
// match the value recorded in the repository index.
type IntegrityError struct {
	Hash   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error for %s: %s", e.Hash, e.Reason)
}

// RepoBusy indicates that a mutating operation was rejected because another
// mutation already holds the repository's exclusive lock.
type RepoBusy struct {
	Path string
}

func (e *RepoBusy) Error() string {
	return fmt.Sprintf("repository busy: %s", e.Path)
}

// IoError wraps an unclassified operating-system error with the path being
// operated on for diagnostic purposes.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error on %q: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// AmbiguousFID indicates that more than one live (non-tombstone) metadata
// record shares the same file identity. The engine resolves this
// deterministically (the first record in directory-scan order) but reports
// the ambiguity rather than silently picking a winner.
type AmbiguousFID struct {
	FID        string
	Candidates []string
}

func (e *AmbiguousFID) Error() string {
	return fmt.Sprintf("ambiguous file identity %s: %d live candidates", e.FID, len(e.Candidates))
}
