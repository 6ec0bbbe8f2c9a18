// Package engine wires the repository layout, object store, metadata
// store, manifest store, snapshot, restore, history, and gc packages
// together behind the single external API a caller (CLI, UI, embedding
// application) actually drives.
package engine

import (
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/draftvcs/draft/pkg/errs"
	"github.com/draftvcs/draft/pkg/gc"
	"github.com/draftvcs/draft/pkg/history"
	"github.com/draftvcs/draft/pkg/manifest"
	"github.com/draftvcs/draft/pkg/metadata"
	"github.com/draftvcs/draft/pkg/objectstore"
	"github.com/draftvcs/draft/pkg/pathcodec"
	"github.com/draftvcs/draft/pkg/repository"
	"github.com/draftvcs/draft/pkg/restore"
	"github.com/draftvcs/draft/pkg/snapshot"
)

// Engine is the single entry point embedding applications use to drive a
// repository: it owns the repository handle and every component engine
// operating over it.
type Engine struct {
	repo      *repository.Repository
	objects   *objectstore.Store
	metadata  *metadata.Store
	manifests *manifest.Store
	snapshots *snapshot.Engine
	restores  *restore.Engine
	histories *history.Engine
	gc        *gc.Engine
}

// Init creates or re-opens a repository rooted at projectRoot (with an
// optional out-of-tree draftRoot) and returns an Engine over it.
func Init(projectRoot, draftRoot string) (*Engine, error) {
	repo, err := repository.Init(projectRoot, draftRoot)
	if err != nil {
		return nil, err
	}
	return newEngine(repo), nil
}

// Open opens an existing repository rooted at projectRoot without creating
// any missing state.
func Open(projectRoot, draftRoot string) (*Engine, error) {
	repo, err := repository.Open(projectRoot, draftRoot)
	if err != nil {
		return nil, err
	}
	return newEngine(repo), nil
}

func newEngine(repo *repository.Repository) *Engine {
	return &Engine{
		repo:      repo,
		objects:   objectstore.New(repo.ObjectsDir()),
		metadata:  metadata.New(repo.MetadataDir()),
		manifests: manifest.New(repo.VersionsDir()),
		snapshots: snapshot.New(repo),
		restores:  restore.New(repo),
		histories: history.New(repo),
		gc:        gc.New(repo),
	}
}

// Close releases the engine's repository lock handle.
func (e *Engine) Close() error {
	return e.repo.Close()
}

// FindProjectRoot walks upward from startPath looking for a repository
// marker and returns the containing project root, if any.
func FindProjectRoot(startPath string) (string, bool, error) {
	return repository.FindProjectRoot(startPath)
}

// Commit ingests explicitFiles and produces a new, unscoped version
// manifest labeled label.
func (e *Engine) Commit(label string, explicitFiles []string) (string, error) {
	return e.snapshots.Commit(label, explicitFiles)
}

// CreateSnapshot recursively snapshots folderRelativePath (or the whole
// project, for pathcodec.RootScope) under label.
func (e *Engine) CreateSnapshot(folderRelativePath, label string) (string, error) {
	return e.snapshots.CreateSnapshot(folderRelativePath, label)
}

// SetCommitProgress registers a callback invoked with each file's path as
// Commit or CreateSnapshot ingests it. Pass nil to stop reporting.
func (e *Engine) SetCommitProgress(reporter func(path string)) {
	e.snapshots.Progress = reporter
}

// Restore materializes versionID onto the working tree.
func (e *Engine) Restore(versionID string, options restore.Options) error {
	return e.restores.Restore(versionID, options)
}

// SetRestoreProgress registers a callback invoked with each file's
// destination path as Restore extracts it. Pass nil to stop reporting.
func (e *Engine) SetRestoreProgress(reporter func(path string)) {
	e.restores.Progress = reporter
}

// DeleteVersion removes a version manifest and releases the object-store
// references it alone held.
func (e *Engine) DeleteVersion(versionID string) error {
	return e.gc.DeleteVersion(versionID)
}

// RenameVersion updates a version manifest's user-facing label; every
// other field of the manifest is immutable once created.
func (e *Engine) RenameVersion(versionID, newLabel string) error {
	if err := e.repo.Lock(false); err != nil {
		return &errs.RepoBusy{Path: e.repo.Dir()}
	}
	defer e.repo.Unlock()

	m, err := e.manifests.Load(versionID)
	if err != nil {
		return err
	}
	m.Label = newLabel
	return e.manifests.Save(m)
}

// History lists every manifest newest-first, with size rollups, optionally
// restricted to those reachable from filterPath's identity.
func (e *Engine) History(filterPath string) ([]*history.Entry, error) {
	index, err := e.repo.LoadIndex()
	if err != nil {
		return nil, err
	}
	return e.histories.History(index, filterPath)
}

// GetCurrentHead returns the version currently materialized on the working
// tree, or "" if none has been restored or committed yet.
func (e *Engine) GetCurrentHead() (string, error) {
	index, err := e.repo.LoadIndex()
	if err != nil {
		return "", err
	}
	return index.CurrentHead, nil
}

// GetLatestVersionForFile returns the version number that best represents
// path's current state: the checked-out head if it touches path, otherwise
// the newest version that does.
func (e *Engine) GetLatestVersionForFile(path string) (string, error) {
	index, err := e.repo.LoadIndex()
	if err != nil {
		return "", err
	}
	return e.histories.GetLatestVersionForFile(index, path)
}

// ExtractFile writes relativePath's content as recorded in versionID
// directly to destPath, independent of the working tree's current state or
// the repository's checked-out head.
func (e *Engine) ExtractFile(versionID, relativePath, destPath string) error {
	normalized, err := pathcodec.Normalize(relativePath)
	if err != nil {
		return err
	}

	m, err := e.manifests.Load(versionID)
	if err != nil {
		return err
	}

	hashString, ok := m.Files[normalized]
	if !ok {
		return &errs.FileNotFoundInVersion{ID: versionID, Path: normalized}
	}

	h, err := digest.Parse(hashString)
	if err != nil {
		return &errs.CorruptManifest{ID: versionID, Err: err}
	}

	index, err := e.repo.LoadIndex()
	if err != nil {
		return err
	}
	record := index.Objects[hashString]
	isCompressed := record == nil || record.IsCompressed

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return &errs.IoError{Path: destPath, Err: err}
	}
	return e.objects.Extract(h, destPath, isCompressed)
}

// SaveAttachment copies localFilePath into the repository's attachments
// directory, named by its content digest plus its original extension, and
// returns the repository-relative path the caller should record (typically
// via SaveMetadata's Attachments field). Attachments are opaque to the
// engine beyond their path: it performs no compression or deduplication
// bookkeeping beyond the content-addressed filename itself.
func (e *Engine) SaveAttachment(localFilePath string) (string, error) {
	source, err := os.Open(localFilePath)
	if err != nil {
		return "", &errs.IoError{Path: localFilePath, Err: err}
	}
	defer source.Close()

	digester := digest.Canonical.Digester()
	temporary, err := os.CreateTemp(e.repo.AttachmentsDir(), ".draft-attachment")
	if err != nil {
		return "", &errs.IoError{Path: e.repo.AttachmentsDir(), Err: err}
	}
	temporaryPath := temporary.Name()
	defer func() {
		temporary.Close()
		os.Remove(temporaryPath)
	}()

	if _, err := io.Copy(temporary, io.TeeReader(source, digester.Hash())); err != nil {
		return "", &errs.IoError{Path: localFilePath, Err: err}
	}
	if err := temporary.Close(); err != nil {
		return "", &errs.IoError{Path: temporaryPath, Err: err}
	}

	name := digester.Digest().Encoded() + filepath.Ext(localFilePath)
	destination := filepath.Join(e.repo.AttachmentsDir(), name)
	if err := os.Rename(temporaryPath, destination); err != nil {
		return "", &errs.IoError{Path: destination, Err: err}
	}

	return filepath.Join("attachments", name), nil
}

// MetadataFields is the mutable subset of a metadata record a caller may
// set via SaveMetadata.
type MetadataFields struct {
	Tags        []string
	Tasks       []metadata.Task
	Attachments []string
}

// SaveMetadata merges fields into the metadata record at path, creating the
// record (and minting its FID) if this is the first time path has been
// observed.
func (e *Engine) SaveMetadata(path string, fields MetadataFields) error {
	normalized, err := pathcodec.Normalize(path)
	if err != nil {
		return err
	}
	if _, err := e.metadata.GetOrCreateFID(normalized); err != nil {
		return err
	}

	record, ok, err := e.metadata.Load(normalized)
	if err != nil {
		return err
	}
	if !ok {
		return &errs.InvalidPath{Path: normalized, Reason: "metadata record disappeared after creation"}
	}

	record.Tags = fields.Tags
	record.Tasks = fields.Tasks
	record.Attachments = fields.Attachments
	return e.metadata.Save(record)
}

// GetMetadata returns the metadata record at path, or nil if none exists
// yet.
func (e *Engine) GetMetadata(path string) (*metadata.Record, error) {
	normalized, err := pathcodec.Normalize(path)
	if err != nil {
		return nil, err
	}
	record, ok, err := e.metadata.Load(normalized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return record, nil
}

// MoveMetadata forwards metadata for every record under oldPath to
// newPath, as invoked when the caller detects (or performs) a rename on
// the working tree.
func (e *Engine) MoveMetadata(oldPath, newPath string) error {
	normalizedOld, err := pathcodec.Normalize(oldPath)
	if err != nil {
		return err
	}
	normalizedNew, err := pathcodec.Normalize(newPath)
	if err != nil {
		return err
	}
	return e.metadata.MoveMetadata(normalizedOld, normalizedNew)
}

// StorageReport is re-exported from pkg/gc for API ergonomics.
type StorageReport = gc.StorageReport

// GetStorageReport computes the repository's overall, per-file, and
// per-snapshot storage breakdown.
func (e *Engine) GetStorageReport() (*StorageReport, error) {
	return e.gc.GetStorageReport()
}

// IntegrityReport is re-exported from pkg/gc for API ergonomics.
type IntegrityReport = gc.IntegrityReport

// ValidateIntegrity verifies the repository's on-disk state against its
// index without mutating anything.
func (e *Engine) ValidateIntegrity() (*IntegrityReport, error) {
	return e.gc.ValidateIntegrity()
}
