// Package metadata implements the per-path sidecar store: stable file
// identity (FID) assignment, rename tracking via forwarding tombstones, and
// the small bag of user-facing fields (tags, tasks, attachments) that ride
// alongside a path across its lifetime.
package metadata

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/draftvcs/draft/pkg/encoding"
	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/logging"
	"github.com/draftvcs/draft/pkg/pathcodec"
)

// maxTombstoneChain bounds traversal of the renamedTo forwarding chain
// (invariant I5), guarding against cycles introduced by hand-edited
// metadata.
const maxTombstoneChain = 50

// Task is a small to-do item attached to a path, carried across renames with
// the rest of its MetadataRecord.
type Task struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Record is the per-path sidecar record. Old records are retained as
// tombstones: once a path is renamed, its record gains a RenamedTo value
// and stops being "live," but is never deleted, so lookups that still hold
// the old path can be forwarded to the new one.
type Record struct {
	// ID is this path's stable file identity, minted the first time the
	// path was observed and carried across every subsequent rename.
	ID string `json:"id"`
	// Path is this record's own normalized path, stored redundantly inside
	// the record (rather than relying solely on the sidecar's hash-derived
	// filename) so that the record remains self-describing if its sidecar
	// file is ever inspected in isolation.
	Path string `json:"path"`
	// PreviousPaths accumulates every path this FID has occupied before its
	// current one.
	PreviousPaths []string `json:"previousPaths,omitempty"`
	// RenamedTo is set when this record has been superseded by a rename; a
	// non-empty value marks the record as a tombstone.
	RenamedTo string `json:"renamedTo,omitempty"`
	// Tags are free-form user labels.
	Tags []string `json:"tags,omitempty"`
	// Tasks are to-do items associated with the path.
	Tasks []Task `json:"tasks,omitempty"`
	// Attachments are repository-relative paths (under attachments/) of
	// files the user has attached to this path. They are opaque to the
	// engine beyond their path.
	Attachments []string `json:"attachments,omitempty"`
}

// IsTombstone reports whether this record has been superseded by a rename.
func (r *Record) IsTombstone() bool {
	return r.RenamedTo != ""
}

// Store persists MetadataRecords as JSON sidecar files named after a fast
// hash of their (current, at write time) path.
type Store struct {
	dir    string
	logger *logging.Logger
}

// New creates a metadata Store rooted at dir (normally a repository's
// metadata subdirectory).
func New(dir string) *Store {
	return &Store{dir: dir, logger: logging.RootLogger.Sublogger("metadata")}
}

// sidecarName derives the on-disk sidecar filename for a normalized path.
// It uses xxh3, a fast non-cryptographic hash, because sidecar names only
// need to be practically collision-free for a single repository's path
// set, not cryptographically so — a second SHA-256 computation here would
// be needless overhead on every path observed during a snapshot.
func sidecarName(path string) string {
	return strconv.FormatUint(xxh3.HashString(path), 16) + ".json"
}

func (s *Store) sidecarPath(path string) string {
	return filepath.Join(s.dir, sidecarName(path))
}

// Load reads the sidecar record stored at the hash of path, if any.
func (s *Store) Load(path string) (*Record, bool, error) {
	record := &Record{}
	if err := encoding.LoadAndUnmarshalJSON(s.sidecarPath(path), record); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &errs.IoError{Path: path, Err: err}
	}
	return record, true, nil
}

// Save atomically persists record at the sidecar location derived from its
// own Path field.
func (s *Store) Save(record *Record) error {
	if record.Path == "" {
		return &errs.InvalidPath{Reason: "metadata record has no path"}
	}
	if err := encoding.MarshalAndSaveJSON(s.sidecarPath(record.Path), record); err != nil {
		return &errs.IoError{Path: record.Path, Err: err}
	}
	return nil
}

// GetOrCreateFID returns the file identity for path, minting a new one (and
// persisting a fresh record) if this is the first time path has been
// observed.
func (s *Store) GetOrCreateFID(path string) (string, error) {
	record, ok, err := s.Load(path)
	if err != nil {
		return "", err
	}
	if ok {
		if record.ID == "" {
			record.ID = uuid.NewString()
			if err := s.Save(record); err != nil {
				return "", err
			}
		}
		return record.ID, nil
	}

	record = &Record{ID: uuid.NewString(), Path: path}
	if err := s.Save(record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// listAll reads every sidecar record in the metadata directory. Corrupt or
// unreadable individual sidecars are logged and skipped rather than
// aborting the whole scan, matching the engine's policy of not letting one
// damaged record block unrelated operations.
func (s *Store) listAll() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errs.IoError{Path: s.dir, Err: err}
	}

	records := make([]*Record, 0, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		record := &Record{}
		full := filepath.Join(s.dir, name)
		if err := encoding.LoadAndUnmarshalJSON(full, record); err != nil {
			s.logger.Warn(&errs.IoError{Path: full, Err: err})
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// MoveMetadata is the rename pivot: every live record whose path equals
// oldPath, or lies within oldPath as a directory (oldPath + "/" prefix), is
// forwarded to its corresponding location under newPath. Each matched
// record becomes a tombstone (RenamedTo set) and a fresh record is written
// at the new location carrying the same FID and an extended PreviousPaths
// history.
func (s *Store) MoveMetadata(oldPath, newPath string) error {
	records, err := s.listAll()
	if err != nil {
		return err
	}

	for _, record := range records {
		if record.IsTombstone() {
			continue
		}

		var destination string
		switch {
		case pathcodec.Equals(record.Path, oldPath):
			destination = newPath
		case strings.HasPrefix(record.Path, oldPath+"/"):
			destination = newPath + record.Path[len(oldPath):]
		case pathcodec.IEquals(record.Path, oldPath):
			destination = newPath
		default:
			continue
		}

		if record.ID == "" {
			record.ID = uuid.NewString()
		}

		previous := append(append([]string{}, record.PreviousPaths...), record.Path)

		moved := &Record{
			ID:            record.ID,
			Path:          destination,
			PreviousPaths: previous,
			Tags:          record.Tags,
			Tasks:         record.Tasks,
			Attachments:   record.Attachments,
		}
		if err := s.Save(moved); err != nil {
			return err
		}

		record.RenamedTo = destination
		if err := s.Save(record); err != nil {
			return err
		}
	}

	return nil
}

// ResolveCurrent follows a record's RenamedTo chain, starting from path,
// until it reaches a live (non-tombstone) record or the chain's bound
// (I5) is exceeded. It returns the terminal record and the path at which
// it lives.
func (s *Store) ResolveCurrent(path string) (*Record, string, bool, error) {
	current := path
	for i := 0; i < maxTombstoneChain; i++ {
		record, ok, err := s.Load(current)
		if err != nil {
			return nil, "", false, err
		}
		if !ok {
			return nil, "", false, nil
		}
		if !record.IsTombstone() {
			return record, current, true, nil
		}
		current = record.RenamedTo
	}
	return nil, "", false, &errs.InvalidPath{Path: path, Reason: "rename tombstone chain exceeds maximum length"}
}

// FindByFID scans every sidecar record looking for the unique live record
// carrying the specified file identity. If more than one live record
// shares the FID (which can arise from manually edited metadata), the
// first in directory-scan order is returned and an AmbiguousFID warning is
// logged; the caller receives no error for the ambiguity.
func (s *Store) FindByFID(fid string) (*Record, error) {
	records, err := s.listAll()
	if err != nil {
		return nil, err
	}

	var first *Record
	var candidates []string
	for _, record := range records {
		if record.IsTombstone() || record.ID != fid {
			continue
		}
		if first == nil {
			first = record
		}
		candidates = append(candidates, record.Path)
	}

	if first == nil {
		return nil, nil
	}
	if len(candidates) > 1 {
		s.logger.Warn(&errs.AmbiguousFID{FID: fid, Candidates: candidates})
	}
	return first, nil
}
