// Package history answers queries over the set of version manifests in a
// repository: chronological listing, size rollups, and identity-aware
// filtering that follows a path across renames so history for a file
// survives its own renaming.
package history

import (
	"sort"
	"strings"

	"github.com/draftvcs/draft/pkg/manifest"
	"github.com/draftvcs/draft/pkg/metadata"
	"github.com/draftvcs/draft/pkg/pathcodec"
	"github.com/draftvcs/draft/pkg/repository"
)

// Entry is a single manifest annotated with the size rollup the query
// computed for it: the full manifest totals in an unfiltered query, or
// totals restricted to the entries that matched a filterPath.
type Entry struct {
	Manifest            *manifest.Manifest
	TotalSize           int64
	TotalCompressedSize int64
}

// Engine answers history queries against a single repository.
type Engine struct {
	manifests *manifest.Store
	metadata  *metadata.Store
}

// New creates a history Engine over repo.
func New(repo *repository.Repository) *Engine {
	return &Engine{
		manifests: manifest.New(repo.VersionsDir()),
		metadata:  metadata.New(repo.MetadataDir()),
	}
}

// History lists every manifest, newest first, with size rollups. If
// filterPath is non-empty, only manifests whose content is reachable under
// that path's identity (its FID, its current and previous paths, its
// rename-forwarding target, and — for a directory target — any path nested
// beneath it) are returned, and their rollups are restricted to the
// matching entries only.
func (e *Engine) History(index *repository.Index, filterPath string) ([]*Entry, error) {
	all, err := e.manifests.List()
	if err != nil {
		return nil, err
	}

	var keys map[string]struct{}
	isDirectory := false
	if filterPath != "" {
		normalized, err := pathcodec.Normalize(filterPath)
		if err != nil {
			return nil, err
		}
		keys, isDirectory, err = e.identityKeys(normalized, all)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]*Entry, 0, len(all))
	for _, m := range all {
		if filterPath == "" {
			entries = append(entries, &Entry{
				Manifest:            m,
				TotalSize:           sumSizes(index, m.Files, nil),
				TotalCompressedSize: sumCompressedSizes(index, m.Files, nil),
			})
			continue
		}

		matchedPaths := matchingPaths(m, keys, isDirectory)
		if matchedPaths == nil {
			continue
		}
		entries = append(entries, &Entry{
			Manifest:            m,
			TotalSize:           sumSizes(index, m.Files, matchedPaths),
			TotalCompressedSize: sumCompressedSizes(index, m.Files, matchedPaths),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Manifest.Timestamp > entries[j].Manifest.Timestamp
	})

	return entries, nil
}

// identityKeys collects the set of keys (FID, current path, previous
// paths, rename-forwarding target, each also added in lower case) that
// identify target across its lifetime, and reports whether target behaves
// as a directory: some manifest's scope equals one of the keys, or some
// manifest contains a path nested beneath target. The working tree is not
// consulted for this.
func (e *Engine) identityKeys(target string, all []*manifest.Manifest) (map[string]struct{}, bool, error) {
	keys := make(map[string]struct{})
	addKey(keys, target)

	record, _, found, err := e.metadata.ResolveCurrent(target)
	if err != nil {
		return nil, false, err
	}
	if found {
		addKey(keys, record.ID)
		addKey(keys, record.Path)
		if record.RenamedTo != "" {
			addKey(keys, record.RenamedTo)
		}
		for _, p := range record.PreviousPaths {
			addKey(keys, p)
		}
	} else if r, ok, err := e.metadata.Load(target); err == nil && ok {
		addKey(keys, r.ID)
		addKey(keys, r.Path)
		for _, p := range r.PreviousPaths {
			addKey(keys, p)
		}
	}

	isDirectory := false
	prefix := target + "/"
	for _, m := range all {
		if m.Scope != "" {
			for key := range keys {
				if pathcodec.Equals(m.Scope, key) || pathcodec.IEquals(m.Scope, key) {
					isDirectory = true
				}
			}
		}
		for path := range m.Files {
			if strings.HasPrefix(path, prefix) {
				isDirectory = true
			}
		}
	}

	return keys, isDirectory, nil
}

func addKey(keys map[string]struct{}, path string) {
	if path == "" {
		return
	}
	keys[path] = struct{}{}
	keys[strings.ToLower(path)] = struct{}{}
}

// matchingPaths returns the subset of m's file paths that match the
// identity key set, or nil if the manifest does not match at all. A
// folder-snapshot scope that equals a key matches every file in the
// manifest; otherwise a path matches through its recorded FID, through its
// own path (exactly or case-insensitively), or, for a directory target,
// through a key it is nested beneath.
func matchingPaths(m *manifest.Manifest, keys map[string]struct{}, isDirectory bool) []string {
	if m.Scope != "" {
		if _, ok := keys[m.Scope]; ok {
			return allPaths(m)
		}
		if _, ok := keys[strings.ToLower(m.Scope)]; ok {
			return allPaths(m)
		}
	}

	var matched []string
	for path := range m.Files {
		if _, ok := keys[m.FileIDs[path]]; ok {
			matched = append(matched, path)
			continue
		}
		if _, ok := keys[path]; ok {
			matched = append(matched, path)
			continue
		}
		if _, ok := keys[strings.ToLower(path)]; ok {
			matched = append(matched, path)
			continue
		}
		if isDirectory {
			for key := range keys {
				if strings.HasPrefix(path, key+"/") {
					matched = append(matched, path)
					break
				}
			}
		}
	}

	if len(matched) == 0 {
		return nil
	}
	return matched
}

func allPaths(m *manifest.Manifest) []string {
	paths := make([]string, 0, len(m.Files))
	for path := range m.Files {
		paths = append(paths, path)
	}
	return paths
}

func sumSizes(index *repository.Index, files map[string]string, restrictTo []string) int64 {
	return sum(index, files, restrictTo, false)
}

func sumCompressedSizes(index *repository.Index, files map[string]string, restrictTo []string) int64 {
	return sum(index, files, restrictTo, true)
}

// sum totals the size (or compressed size) of the blobs referenced by
// files, restricted to restrictTo if non-nil. A hash is counted at most
// once regardless of how many paths in the set reference it, matching
// gc.GetStorageReport's per-snapshot rollup: storage is deduplicated by
// content, not by how many file entries happen to point at it.
func sum(index *repository.Index, files map[string]string, restrictTo []string, compressed bool) int64 {
	var total int64
	seen := make(map[string]struct{})
	consider := func(path string) {
		h, ok := files[path]
		if !ok {
			return
		}
		if _, dup := seen[h]; dup {
			return
		}
		seen[h] = struct{}{}
		record, ok := index.Objects[h]
		if !ok {
			return
		}
		if compressed {
			total += record.CompressedSize
		} else {
			total += record.Size
		}
	}

	if restrictTo == nil {
		for path := range files {
			consider(path)
		}
		return total
	}

	for _, path := range restrictTo {
		consider(path)
	}
	return total
}

// GetLatestVersionForFile runs a filtered history query for path and
// returns the version number of either the current head (if present in the
// filtered result) or the newest matching entry, or "" if nothing matches.
func (e *Engine) GetLatestVersionForFile(index *repository.Index, path string) (string, error) {
	entries, err := e.History(index, path)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	if index.CurrentHead != "" {
		for _, entry := range entries {
			if entry.Manifest.ID == index.CurrentHead {
				return entry.Manifest.VersionNumber, nil
			}
		}
	}

	return entries[0].Manifest.VersionNumber, nil
}
