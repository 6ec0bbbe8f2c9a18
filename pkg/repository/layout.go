// Package repository implements the on-disk repository layout: directory
// creation, detection, the repository index, and the per-repository
// advisory lock that serializes mutating operations.
package repository

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/draftvcs/draft/pkg/encoding"
	"github.com/draftvcs/draft/pkg/filesystem"
	"github.com/draftvcs/draft/pkg/filesystem/locking"
	"github.com/draftvcs/draft/pkg/logging"
)

// DirectoryName is the name of the repository directory created inside the
// draft root. It also serves as the marker findProjectRoot looks for when
// walking upward from an arbitrary starting path.
const DirectoryName = ".draft"

const (
	objectsSubdirectory     = "objects"
	versionsSubdirectory    = "versions"
	metadataSubdirectory    = "metadata"
	attachmentsSubdirectory = "attachments"
	indexFileName           = "index.json"
	lockFileName            = "repository.lock"

	directoryPermissions = 0755
	filePermissions       = 0644
)

// Repository represents an opened or newly initialized draft repository.
type Repository struct {
	// ProjectRoot is the working tree that this repository versions.
	ProjectRoot string
	// DraftRoot is the directory containing the repository directory. It
	// may equal ProjectRoot or be an out-of-tree location chosen once per
	// project.
	DraftRoot string
	// logger is this repository's logger, sub-loggered by component.
	logger *logging.Logger

	locker *locking.Locker
}

// Dir returns the path to the repository's own directory
// (<draftRoot>/.draft).
func (r *Repository) Dir() string {
	return filepath.Join(r.DraftRoot, DirectoryName)
}

// ObjectsDir returns the path to the object store directory.
func (r *Repository) ObjectsDir() string { return filepath.Join(r.Dir(), objectsSubdirectory) }

// VersionsDir returns the path to the version manifest directory.
func (r *Repository) VersionsDir() string { return filepath.Join(r.Dir(), versionsSubdirectory) }

// MetadataDir returns the path to the metadata sidecar directory.
func (r *Repository) MetadataDir() string { return filepath.Join(r.Dir(), metadataSubdirectory) }

// AttachmentsDir returns the path to the attachments directory.
func (r *Repository) AttachmentsDir() string {
	return filepath.Join(r.Dir(), attachmentsSubdirectory)
}

// IndexPath returns the path to the repository index file.
func (r *Repository) IndexPath() string { return filepath.Join(r.Dir(), indexFileName) }

// Init creates a new repository rooted at projectRoot. If draftRoot is
// empty, it defaults to projectRoot. Init is idempotent: calling it on an
// already-initialized repository simply ensures the layout is intact and
// does not disturb existing objects, versions, or metadata.
func Init(projectRoot, draftRoot string) (*Repository, error) {
	if draftRoot == "" {
		draftRoot = projectRoot
	}

	repo := &Repository{
		ProjectRoot: projectRoot,
		DraftRoot:   draftRoot,
		logger:      logging.RootLogger.Sublogger("repository"),
	}

	for _, dir := range []string{repo.ObjectsDir(), repo.VersionsDir(), repo.MetadataDir(), repo.AttachmentsDir()} {
		if err := os.MkdirAll(dir, directoryPermissions); err != nil {
			return nil, errors.Wrapf(err, "unable to create repository directory %q", dir)
		}
	}

	if _, err := os.Stat(repo.IndexPath()); os.IsNotExist(err) {
		if err := saveIndex(repo.IndexPath(), NewIndex()); err != nil {
			return nil, errors.Wrap(err, "unable to write initial repository index")
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "unable to stat repository index")
	}

	if runtime.GOOS == "windows" {
		if err := filesystem.MarkHidden(repo.Dir()); err != nil {
			repo.logger.Warn(errors.Wrap(err, "unable to mark repository directory hidden"))
		}
	}

	locker, err := locking.NewLocker(filepath.Join(repo.Dir(), lockFileName), filePermissions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create repository lock")
	}
	repo.locker = locker

	return repo, nil
}

// Open opens an existing repository without creating any missing
// directories. It fails if the repository directory or index is absent.
func Open(projectRoot, draftRoot string) (*Repository, error) {
	if draftRoot == "" {
		draftRoot = projectRoot
	}

	repo := &Repository{
		ProjectRoot: projectRoot,
		DraftRoot:   draftRoot,
		logger:      logging.RootLogger.Sublogger("repository"),
	}

	if _, err := os.Stat(repo.Dir()); err != nil {
		return nil, errors.Wrap(err, "repository does not exist")
	}
	if _, err := os.Stat(repo.IndexPath()); err != nil {
		return nil, errors.Wrap(err, "repository index does not exist")
	}

	locker, err := locking.NewLocker(filepath.Join(repo.Dir(), lockFileName), filePermissions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open repository lock")
	}
	repo.locker = locker

	return repo, nil
}

// Logger returns this repository's logger.
func (r *Repository) Logger() *logging.Logger { return r.logger }

// Close releases the repository's lock file handle. It does not remove any
// on-disk state.
func (r *Repository) Close() error {
	if r.locker == nil {
		return nil
	}
	return r.locker.Close()
}

// FindProjectRoot walks upward from startPath looking for a repository
// directory and returns the containing project root. It returns ok=false
// (with no error) if no repository marker is found before reaching the
// file system root.
func FindProjectRoot(startPath string) (root string, ok bool, err error) {
	current, err := filepath.Abs(startPath)
	if err != nil {
		return "", false, errors.Wrap(err, "unable to resolve absolute path")
	}

	for {
		candidate := filepath.Join(current, DirectoryName)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return current, true, nil
		} else if statErr != nil && !os.IsNotExist(statErr) {
			return "", false, errors.Wrap(statErr, "unable to stat candidate repository directory")
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false, nil
		}
		current = parent
	}
}

// LoadIndex reads and parses the repository index.
func (r *Repository) LoadIndex() (*Index, error) {
	index := NewIndex()
	if err := encoding.LoadAndUnmarshalJSON(r.IndexPath(), index); err != nil {
		return nil, errors.Wrap(err, "unable to load repository index")
	}
	if index.Objects == nil {
		index.Objects = make(map[string]*ObjectRecord)
	}
	return index, nil
}

// SaveIndex atomically persists the repository index.
func (r *Repository) SaveIndex(index *Index) error {
	return saveIndex(r.IndexPath(), index)
}

func saveIndex(path string, index *Index) error {
	return encoding.MarshalAndSaveJSON(path, index)
}

// Lock acquires the repository's exclusive advisory lock, which guards
// mutating operations (commit, createSnapshot, restore, deleteVersion,
// renameVersion). Read-only operations do not take the lock at all; the
// underlying flock/LockFileEx primitive doesn't portably support
// upgradeable shared locks, so callers that only read never contend with
// each other.
func (r *Repository) Lock(block bool) error {
	return r.locker.Lock(block)
}

// Unlock releases the repository's advisory lock.
func (r *Repository) Unlock() error {
	return r.locker.Unlock()
}
