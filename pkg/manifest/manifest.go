// Package manifest implements the version manifest model and store:
// immutable, timestamped snapshots of a file tree, persisted as individual
// JSON documents and indexed by directory listing.
package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/draftvcs/draft/pkg/encoding"
	"github.com/draftvcs/draft/pkg/errs"
)

// Manifest is the immutable VersionManifest: the exact content (by hash)
// and file identity of every path included in one snapshot.
type Manifest struct {
	// ID is this manifest's unique identifier, minted at random (a "vers_"
	// Base62 identifier); IDs carry no ordering.
	ID string `json:"id"`
	// VersionNumber is the human-facing "major.minor" identifier assigned
	// at creation time by the version-numbering algorithm.
	VersionNumber string `json:"versionNumber"`
	// Label is a user-supplied, mutable description of this version.
	Label string `json:"label"`
	// Timestamp is the Unix nanosecond time at which this manifest was
	// created, the basis for ordering manifests.
	Timestamp int64 `json:"timestamp"`
	// Files maps normalized path to content digest (in "sha256:<hex>"
	// string form).
	Files map[string]string `json:"files"`
	// FileIDs maps normalized path to the file identity that was current
	// at the time this manifest was produced. Legacy manifests (produced
	// before FID-awareness) may have an empty or partial map here.
	FileIDs map[string]string `json:"fileIds,omitempty"`
	// ParentID is the manifest this one was created on top of (the prior
	// currentHead), empty only for the very first manifest in a
	// repository.
	ParentID string `json:"parentId,omitempty"`
	// Scope is present only for folder snapshots: the normalized relative
	// folder path the snapshot was taken over, or "." for the project
	// root.
	Scope string `json:"scope,omitempty"`
}

// IsFolderSnapshot reports whether this manifest was produced by
// createSnapshot (as opposed to an explicit-file commit).
func (m *Manifest) IsFolderSnapshot() bool {
	return m.Scope != ""
}

// Store persists manifests as individual JSON documents under dir (normally
// a repository's versions subdirectory).
type Store struct {
	dir string
}

// New creates a manifest Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save atomically persists a manifest. Manifests are otherwise immutable
// except for Label, so Save is used both for initial creation and for
// renameVersion's label update.
func (s *Store) Save(m *Manifest) error {
	if err := encoding.MarshalAndSaveJSON(s.path(m.ID), m); err != nil {
		return &errs.IoError{Path: m.ID, Err: err}
	}
	return nil
}

// Load reads a single manifest by ID.
func (s *Store) Load(id string) (*Manifest, error) {
	m := &Manifest{}
	if err := encoding.LoadAndUnmarshalJSON(s.path(id), m); err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.VersionNotFound{ID: id}
		}
		return nil, &errs.CorruptManifest{ID: id, Err: err}
	}
	return m, nil
}

// Delete removes a manifest's on-disk document. It is the caller's
// responsibility to pair this with the corresponding refcount releases in
// the object store (see pkg/gc).
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return &errs.VersionNotFound{ID: id}
		}
		return &errs.IoError{Path: id, Err: err}
	}
	return nil
}

// List returns every manifest in the store, sorted ascending by timestamp
// for internal use (callers that want newest-first, such as history
// queries, reverse the result). Manifests missing a VersionNumber (legacy
// tolerance) are assigned "1", "2", … in timestamp order as they're
// encountered.
func (s *Store) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errs.IoError{Path: s.dir, Err: err}
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		m, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Timestamp < manifests[j].Timestamp
	})

	for i, m := range manifests {
		if m.VersionNumber == "" {
			m.VersionNumber = strconv.Itoa(i + 1)
		}
	}

	return manifests, nil
}
