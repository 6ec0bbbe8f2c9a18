// Package snapshot implements the two entry points that create version
// manifests — commit (an explicit file set) and createSnapshot (a folder
// subtree) — sharing a single backbone: ingest, identity assignment,
// manifest construction, version numbering, and index update.
package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/identifier"
	"github.com/draftvcs/draft/pkg/logging"
	"github.com/draftvcs/draft/pkg/manifest"
	"github.com/draftvcs/draft/pkg/metadata"
	"github.com/draftvcs/draft/pkg/objectstore"
	"github.com/draftvcs/draft/pkg/pathcodec"
	"github.com/draftvcs/draft/pkg/repository"
)

const maxIdentifierMintAttempts = 10

// Engine drives snapshot creation against a single repository.
type Engine struct {
	repo      *repository.Repository
	objects   *objectstore.Store
	metadata  *metadata.Store
	manifests *manifest.Store
	logger    *logging.Logger

	// Progress, if non-nil, is invoked with each file's project-relative
	// path as it is ingested. It is optional, purely for caller-side
	// progress reporting, and has no bearing on the commit itself.
	Progress func(path string)
}

// New creates a snapshot Engine over repo.
func New(repo *repository.Repository) *Engine {
	return &Engine{
		repo:      repo,
		objects:   objectstore.New(repo.ObjectsDir()),
		metadata:  metadata.New(repo.MetadataDir()),
		manifests: manifest.New(repo.VersionsDir()),
		logger:    repo.Logger().Sublogger("snapshot"),
	}
}

// Commit ingests each of the specified project-root-relative files
// (skipping, with a logged warning, any that no longer exist) and produces a new,
// unscoped version manifest.
func (e *Engine) Commit(label string, explicitFiles []string) (string, error) {
	if err := e.repo.Lock(false); err != nil {
		return "", &errs.RepoBusy{Path: e.repo.Dir()}
	}
	defer e.repo.Unlock()

	paths := make([]string, 0, len(explicitFiles))
	for _, f := range explicitFiles {
		normalized, err := pathcodec.Normalize(f)
		if err != nil {
			return "", err
		}
		paths = append(paths, normalized)
	}

	return e.run(label, "", paths)
}

// CreateSnapshot recursively walks folderRelativePath (or the entire
// project if it is pathcodec.RootScope) and produces a new version
// manifest scoped to that subtree.
func (e *Engine) CreateSnapshot(folderRelativePath, label string) (string, error) {
	if err := e.repo.Lock(false); err != nil {
		return "", &errs.RepoBusy{Path: e.repo.Dir()}
	}
	defer e.repo.Unlock()

	scope, err := pathcodec.Normalize(folderRelativePath)
	if err != nil {
		return "", err
	}

	paths, err := e.walk(scope)
	if err != nil {
		return "", err
	}

	return e.run(label, scope, paths)
}

// walk enumerates every regular file under scope relative to the project
// root, skipping the repository directory itself.
func (e *Engine) walk(scope string) ([]string, error) {
	root := e.repo.ProjectRoot
	if scope != pathcodec.RootScope {
		root = filepath.Join(e.repo.ProjectRoot, scope)
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return &errs.IoError{Path: p, Err: err}
		}
		if d.IsDir() {
			if p != root && filepath.Base(p) == repository.DirectoryName {
				return filepath.SkipDir
			}
			return nil
		}

		relative, err := filepath.Rel(e.repo.ProjectRoot, p)
		if err != nil {
			return &errs.IoError{Path: p, Err: err}
		}
		normalized, err := pathcodec.Normalize(filepath.ToSlash(relative))
		if err != nil {
			return nil
		}
		paths = append(paths, normalized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// run is the shared backbone: ingest every candidate path, assign file
// identities, build the manifest, compute its version number, and commit
// the index update as a single critical section.
func (e *Engine) run(label, scope string, paths []string) (string, error) {
	files := make(map[string]string)
	fileIDs := make(map[string]string)
	type ingested struct {
		size, compressedSize int64
	}
	newObjects := make(map[string]ingested)

	for _, relative := range paths {
		absolute := filepath.Join(e.repo.ProjectRoot, filepath.FromSlash(relative))
		info, err := os.Stat(absolute)
		if err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn(&errs.IoError{Path: relative, Err: err})
				continue
			}
			return "", &errs.IoError{Path: relative, Err: err}
		}
		if info.IsDir() {
			continue
		}

		if e.Progress != nil {
			e.Progress(relative)
		}

		h, originalSize, storedSize, err := e.objects.Ingest(absolute)
		if err != nil {
			return "", err
		}

		fid, err := e.metadata.GetOrCreateFID(relative)
		if err != nil {
			return "", err
		}

		digestString := h.String()
		files[relative] = digestString
		fileIDs[relative] = fid
		if _, exists := newObjects[digestString]; !exists {
			newObjects[digestString] = ingested{size: originalSize, compressedSize: storedSize}
		}
	}

	index, err := e.repo.LoadIndex()
	if err != nil {
		return "", err
	}

	versionNumber, err := e.nextVersionNumber(index)
	if err != nil {
		return "", err
	}

	id, err := e.mintVersionID()
	if err != nil {
		return "", err
	}

	m := &manifest.Manifest{
		ID:            id,
		VersionNumber: versionNumber,
		Label:         label,
		Timestamp:     time.Now().UnixNano(),
		Files:         files,
		FileIDs:       fileIDs,
		ParentID:      index.CurrentHead,
		Scope:         scope,
	}
	if err := e.manifests.Save(m); err != nil {
		return "", err
	}

	for relative, digestString := range files {
		record, exists := index.Objects[digestString]
		if !exists {
			sizes := newObjects[digestString]
			record = &repository.ObjectRecord{
				Size:           sizes.size,
				CompressedSize: sizes.compressedSize,
				IsCompressed:   true,
				FirstSeenPath:  relative,
			}
			index.Objects[digestString] = record
		}
		record.RefCount++
	}

	index.LatestVersion = id
	index.CurrentHead = id
	if err := e.repo.SaveIndex(index); err != nil {
		return "", err
	}

	return id, nil
}

// mintVersionID generates a collision-resistant version identifier,
// re-minting on the practically-impossible chance of a collision with an
// existing manifest.
func (e *Engine) mintVersionID() (string, error) {
	for attempt := 0; attempt < maxIdentifierMintAttempts; attempt++ {
		id, err := identifier.New(identifier.PrefixVersion)
		if err != nil {
			return "", err
		}
		if _, err := e.manifests.Load(id); err != nil {
			if _, notFound := err.(*errs.VersionNotFound); notFound {
				return id, nil
			}
			return "", err
		}
	}
	return "", &errs.IoError{Path: "versions", Err: errors.New("exceeded maximum version identifier mint attempts")}
}

// nextVersionNumber implements the deterministic version-numbering rule:
// a linear extension of the current tip bumps the major component and
// resets the minor to zero; branching off a non-tip version bumps the
// minor component under the parent's existing major.
func (e *Engine) nextVersionNumber(index *repository.Index) (string, error) {
	if index.CurrentHead == "" {
		return "1.0", nil
	}

	parent, err := e.manifests.Load(index.CurrentHead)
	if err != nil {
		return "", err
	}

	parentMajor, _, err := parseVersionNumber(parent.VersionNumber)
	if err != nil {
		return "", err
	}

	if index.CurrentHead == index.LatestVersion {
		return strconv.Itoa(parentMajor+1) + ".0", nil
	}

	all, err := e.manifests.List()
	if err != nil {
		return "", err
	}

	maxMinor := -1
	for _, m := range all {
		major, minor, err := parseVersionNumber(m.VersionNumber)
		if err != nil {
			continue
		}
		if major == parentMajor && minor > maxMinor {
			maxMinor = minor
		}
	}

	return strconv.Itoa(parentMajor) + "." + strconv.Itoa(maxMinor+1), nil
}

func parseVersionNumber(v string) (major, minor int, err error) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, &errs.CorruptManifest{ID: v, Err: errors.New("version number is not in major.minor form")}
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, &errs.CorruptManifest{ID: v, Err: err}
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, &errs.CorruptManifest{ID: v, Err: err}
	}
	return major, minor, nil
}
