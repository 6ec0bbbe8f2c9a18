// Package restore implements materializing a version manifest back onto
// the working tree: scoped cleaning for folder snapshots, rename-chased
// destination resolution, and best-effort, idempotent extraction.
package restore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/logging"
	"github.com/draftvcs/draft/pkg/manifest"
	"github.com/draftvcs/draft/pkg/metadata"
	"github.com/draftvcs/draft/pkg/objectstore"
	"github.com/draftvcs/draft/pkg/pathcodec"
	"github.com/draftvcs/draft/pkg/repository"
)

// Options configures a Restore call.
type Options struct {
	// RecreateScope causes Restore to recreate a folder snapshot's scope
	// directory if it no longer exists on disk, rather than failing.
	RecreateScope bool
}

// Engine drives restore operations against a single repository.
type Engine struct {
	repo      *repository.Repository
	objects   *objectstore.Store
	metadata  *metadata.Store
	manifests *manifest.Store
	logger    *logging.Logger

	// Progress, if non-nil, is invoked with each file's destination path as
	// it is extracted. It is optional, purely for caller-side progress
	// reporting, and has no bearing on the restore itself.
	Progress func(path string)
}

// New creates a restore Engine over repo.
func New(repo *repository.Repository) *Engine {
	return &Engine{
		repo:      repo,
		objects:   objectstore.New(repo.ObjectsDir()),
		metadata:  metadata.New(repo.MetadataDir()),
		manifests: manifest.New(repo.VersionsDir()),
		logger:    repo.Logger().Sublogger("restore"),
	}
}

// Restore materializes versionID onto the working tree. It is best-effort
// and idempotent: restoring the same version twice in a row leaves the
// working tree in the same state as restoring it once. An entry with no
// live destination or with a missing blob is skipped with a logged warning
// and the remaining entries are still processed; any other failure stops
// the restore and is returned, leaving the entries already extracted in
// place and the current head unchanged.
func (e *Engine) Restore(versionID string, options Options) error {
	if err := e.repo.Lock(false); err != nil {
		return &errs.RepoBusy{Path: e.repo.Dir()}
	}
	defer e.repo.Unlock()

	m, err := e.manifests.Load(versionID)
	if err != nil {
		return err
	}

	if m.IsFolderSnapshot() {
		if err := e.cleanScope(m, options); err != nil {
			return err
		}
	}

	index, err := e.repo.LoadIndex()
	if err != nil {
		return err
	}

	for path, hashString := range m.Files {
		destination := e.resolveDestination(m, path)
		if destination == "" {
			e.logger.Warn(&errs.InvalidPath{Path: path, Reason: "renamed away with no forwarding destination; skipping"})
			continue
		}

		h, err := digest.Parse(hashString)
		if err != nil {
			return &errs.CorruptManifest{ID: versionID, Err: err}
		}

		absolute := filepath.Join(e.repo.ProjectRoot, filepath.FromSlash(destination))
		if upToDate(absolute, h) {
			continue
		}

		record := index.Objects[hashString]
		isCompressed := record == nil || record.IsCompressed

		if e.Progress != nil {
			e.Progress(destination)
		}

		if err := os.MkdirAll(filepath.Dir(absolute), 0755); err != nil {
			return &errs.IoError{Path: destination, Err: err}
		}
		if err := e.objects.Extract(h, absolute, isCompressed); err != nil {
			var missing *errs.MissingBlob
			if errors.As(err, &missing) {
				e.logger.Warn(&errs.MissingBlob{Hash: hashString})
				continue
			}
			return err
		}
	}

	index.CurrentHead = versionID
	return e.repo.SaveIndex(index)
}

// resolveDestination implements the two-tier destination resolution of
// §4.7.2: prefer the live metadata record for the manifest's recorded file
// identity, falling back to the metadata rename-chase for legacy manifests
// without FIDs. It returns "" if neither yields a live path.
func (e *Engine) resolveDestination(m *manifest.Manifest, path string) string {
	if fid, ok := m.FileIDs[path]; ok && fid != "" {
		record, err := e.metadata.FindByFID(fid)
		if err == nil && record != nil {
			return record.Path
		}
	}

	_, finalPath, ok, err := e.metadata.ResolveCurrent(path)
	if err == nil && ok {
		return finalPath
	}

	return ""
}

// upToDate reports whether the file at absolute already has content
// digest h, in which case extraction can be skipped entirely.
func upToDate(absolute string, h digest.Digest) bool {
	file, err := os.Open(absolute)
	if err != nil {
		return false
	}
	defer file.Close()

	existing, err := digest.Canonical.FromReader(file)
	if err != nil {
		return false
	}
	return existing == h
}

// cleanScope implements the scoped-cleaning contract: every file under the
// manifest's scope that isn't named in the manifest is deleted, and
// now-empty directories are pruned upward, without ever touching the
// repository directory itself.
func (e *Engine) cleanScope(m *manifest.Manifest, options Options) error {
	scopeDir := e.repo.ProjectRoot
	if m.Scope != pathcodec.RootScope {
		scopeDir = filepath.Join(e.repo.ProjectRoot, filepath.FromSlash(m.Scope))
	}

	if _, err := os.Stat(scopeDir); err != nil {
		if !os.IsNotExist(err) {
			return &errs.IoError{Path: scopeDir, Err: err}
		}
		if !options.RecreateScope {
			return &errs.IoError{Path: scopeDir, Err: err}
		}
		if err := os.MkdirAll(scopeDir, 0755); err != nil {
			return &errs.IoError{Path: scopeDir, Err: err}
		}
		return nil
	}

	var toRemove []string
	err := filepath.WalkDir(scopeDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != scopeDir && filepath.Base(p) == repository.DirectoryName {
				return filepath.SkipDir
			}
			return nil
		}

		relative, err := filepath.Rel(e.repo.ProjectRoot, p)
		if err != nil {
			return nil
		}
		normalized, err := pathcodec.Normalize(filepath.ToSlash(relative))
		if err != nil {
			return nil
		}
		if _, tracked := m.Files[normalized]; !tracked {
			toRemove = append(toRemove, p)
		}
		return nil
	})
	if err != nil {
		return &errs.IoError{Path: scopeDir, Err: err}
	}

	for _, p := range toRemove {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return &errs.IoError{Path: p, Err: err}
		}
	}

	pruneEmptyDirectories(scopeDir, e.repo.ProjectRoot)

	return nil
}

// pruneEmptyDirectories removes now-empty directories under root, working
// from the deepest level upward, stopping at (and never removing) root
// itself.
func pruneEmptyDirectories(root, projectRoot string) {
	var dirs []string
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		dirs = append(dirs, p)
		return nil
	})

	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if dir == root || dir == projectRoot {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			os.Remove(dir)
		}
	}
}
