// Package gc implements the offline maintenance operations over a
// repository: dropping a version and releasing the blobs it alone
// referenced, verifying on-disk integrity against the index, and producing
// a human-facing storage report.
package gc

import (
	"github.com/opencontainers/go-digest"

	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/logging"
	"github.com/draftvcs/draft/pkg/manifest"
	"github.com/draftvcs/draft/pkg/objectstore"
	"github.com/draftvcs/draft/pkg/repository"
)

// Engine drives garbage collection and integrity checks against a single
// repository.
type Engine struct {
	repo      *repository.Repository
	objects   *objectstore.Store
	manifests *manifest.Store
	logger    *logging.Logger
}

// New creates a gc Engine over repo.
func New(repo *repository.Repository) *Engine {
	return &Engine{
		repo:      repo,
		objects:   objectstore.New(repo.ObjectsDir()),
		manifests: manifest.New(repo.VersionsDir()),
		logger:    repo.Logger().Sublogger("gc"),
	}
}

// DeleteVersion removes a manifest and releases the reference each of its
// file entries held on its content hash, unlinking any blob whose refcount
// drops to zero. If id was the repository's latestVersion, latestVersion is
// reassigned to the newest of the remaining manifests (or cleared if none
// remain).
func (e *Engine) DeleteVersion(id string) error {
	if err := e.repo.Lock(false); err != nil {
		return &errs.RepoBusy{Path: e.repo.Dir()}
	}
	defer e.repo.Unlock()

	m, err := e.manifests.Load(id)
	if err != nil {
		return err
	}

	index, err := e.repo.LoadIndex()
	if err != nil {
		return err
	}

	if err := e.manifests.Delete(id); err != nil {
		return err
	}

	for _, h := range m.Files {
		e.release(index, h)
	}

	if index.CurrentHead == id {
		index.CurrentHead = ""
	}

	if index.LatestVersion == id {
		remaining, err := e.manifests.List()
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			index.LatestVersion = ""
		} else {
			newest := remaining[0]
			for _, candidate := range remaining[1:] {
				if candidate.Timestamp > newest.Timestamp {
					newest = candidate
				}
			}
			index.LatestVersion = newest.ID
		}
	}

	return e.repo.SaveIndex(index)
}

// release decrements h's reference count by one, mirroring the
// per-(manifest,path) increment Commit/CreateSnapshot performed when the
// entry was created (I2): a manifest referencing h from two different
// paths is released with two separate calls, one per path. It unlinks the
// blob and drops its record once the count reaches zero.
func (e *Engine) release(index *repository.Index, h string) {
	record, ok := index.Objects[h]
	if !ok {
		return
	}
	record.RefCount--
	if record.RefCount > 0 {
		return
	}

	parsed, err := digest.Parse(h)
	if err == nil {
		if err := e.objects.Remove(parsed); err != nil {
			e.logger.Warn(err)
		}
	}
	delete(index.Objects, h)
}

// IntegrityReport is the structured result of ValidateIntegrity: never an
// error by itself, since the caller decides what to do with a non-empty
// Errors list.
type IntegrityReport struct {
	OK     bool
	Errors []error
}

// ValidateIntegrity verifies that every indexed hash has a corresponding
// blob on disk, and that every manifest-referenced hash is present in the
// index. It never aborts early: every inconsistency found is appended to
// the report rather than returned as the function's error.
func (e *Engine) ValidateIntegrity() (*IntegrityReport, error) {
	index, err := e.repo.LoadIndex()
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{OK: true}

	for h := range index.Objects {
		parsed, err := digest.Parse(h)
		if err != nil {
			report.OK = false
			report.Errors = append(report.Errors, &errs.IntegrityError{Hash: h, Reason: "unparseable digest in index: " + err.Error()})
			continue
		}
		if !e.objects.Exists(parsed) {
			report.OK = false
			report.Errors = append(report.Errors, &errs.MissingBlob{Hash: h})
		}
	}

	manifests, err := e.manifests.List()
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		for path, h := range m.Files {
			if _, ok := index.Objects[h]; !ok {
				report.OK = false
				report.Errors = append(report.Errors, &errs.IntegrityError{
					Hash:   h,
					Reason: "referenced by version " + m.ID + " path " + path + " but absent from the index",
				})
			}
		}
	}

	return report, nil
}

// StorageReport summarizes the repository's disk usage, as surfaced by
// getStorageReport in the external API.
type StorageReport struct {
	TotalSize           int64
	TotalCompressedSize int64
	CompressionRatio    float64
	Files               []FileUsage
	Snapshots           []SnapshotUsage
}

// FileUsage reports the storage contribution of a single content hash,
// attributed to the path it was first observed at.
type FileUsage struct {
	Hash                string
	FirstSeenPath       string
	Size                int64
	CompressedSize      int64
	RefCount            int
}

// SnapshotUsage reports a single version's size rollup, mirroring the
// totals a history query computes for the same manifest.
type SnapshotUsage struct {
	VersionID           string
	VersionNumber       string
	Label               string
	TotalSize           int64
	TotalCompressedSize int64
}

// GetStorageReport computes the overall, per-file, and per-snapshot
// storage breakdown used to answer the external API's getStorageReport
// call: total and compressed totals across every distinct blob in the
// index (not double-counted across manifests, since each blob is stored
// once regardless of its refCount), the overall compression ratio, a
// per-file breakdown, and a per-snapshot rollup identical in shape to an
// unfiltered history query's totals.
func (e *Engine) GetStorageReport() (*StorageReport, error) {
	index, err := e.repo.LoadIndex()
	if err != nil {
		return nil, err
	}

	report := &StorageReport{}
	for h, record := range index.Objects {
		report.TotalSize += record.Size
		report.TotalCompressedSize += record.CompressedSize
		report.Files = append(report.Files, FileUsage{
			Hash:           h,
			FirstSeenPath:  record.FirstSeenPath,
			Size:           record.Size,
			CompressedSize: record.CompressedSize,
			RefCount:       record.RefCount,
		})
	}

	if report.TotalSize > 0 {
		report.CompressionRatio = float64(report.TotalCompressedSize) / float64(report.TotalSize)
	}

	manifests, err := e.manifests.List()
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		var size, compressedSize int64
		seen := make(map[string]struct{}, len(m.Files))
		for _, h := range m.Files {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			if record, ok := index.Objects[h]; ok {
				size += record.Size
				compressedSize += record.CompressedSize
			}
		}
		report.Snapshots = append(report.Snapshots, SnapshotUsage{
			VersionID:           m.ID,
			VersionNumber:       m.VersionNumber,
			Label:               m.Label,
			TotalSize:           size,
			TotalCompressedSize: compressedSize,
		})
	}

	return report, nil
}
