package repository

// ObjectRecord is the central index entry for a single content hash. It
// tracks enough information to extract the blob without re-deriving it from
// the file system, and a reference count that drives garbage collection.
type ObjectRecord struct {
	// Size is the original, uncompressed size of the blob in bytes.
	Size int64 `json:"size"`
	// CompressedSize is the size of the blob as stored on disk.
	CompressedSize int64 `json:"compressedSize"`
	// IsCompressed indicates whether the stored blob is Brotli-compressed.
	// Legacy blobs ingested before compression was mandatory may carry raw
	// bytes and are read back with IsCompressed false.
	IsCompressed bool `json:"isCompressed"`
	// RefCount is the number of distinct (manifest, path-entry) references
	// to this hash across all live manifests.
	RefCount int `json:"refCount"`
	// FirstSeenPath is the working-tree path at which this content was
	// first observed, kept for diagnostic purposes only.
	FirstSeenPath string `json:"firstSeenPath"`
}

// Index is the persisted RepositoryIndex: the object table plus the two
// version pointers that define the repository's current state.
type Index struct {
	// Objects maps a content hash (in digest string form, e.g.
	// "sha256:<hex>") to its ObjectRecord.
	Objects map[string]*ObjectRecord `json:"objects"`
	// LatestVersion is the ID of the most recently created version
	// manifest, regardless of whether it is currently checked out.
	LatestVersion string `json:"latestVersion,omitempty"`
	// CurrentHead is the ID of the version manifest currently materialized
	// on the working tree.
	CurrentHead string `json:"currentHead,omitempty"`
}

// NewIndex returns an empty Index ready for persistence.
func NewIndex() *Index {
	return &Index{Objects: make(map[string]*ObjectRecord)}
}
