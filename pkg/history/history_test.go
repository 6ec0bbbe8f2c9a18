package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/draftvcs/draft/pkg/metadata"
	"github.com/draftvcs/draft/pkg/repository"
	"github.com/draftvcs/draft/pkg/snapshot"
)

func newTestRepo(t *testing.T) (*repository.Repository, string) {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Init(root, "")
	if err != nil {
		t.Fatal("unable to initialize repository:", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, root
}

func writeFile(t *testing.T, root, relative, contents string) {
	t.Helper()
	full := filepath.Join(root, relative)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHistoryOrdersNewestFirst(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "a.txt", "v1")
	if _, err := snap.Commit("v1", []string{"a.txt"}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "a.txt", "v2")
	if _, err := snap.Commit("v2", []string{"a.txt"}); err != nil {
		t.Fatal(err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	engine := New(repo)
	entries, err := engine.History(index, "")
	if err != nil {
		t.Fatal("unable to query history:", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Manifest.Label != "v2" || entries[1].Manifest.Label != "v1" {
		t.Errorf("expected newest-first ordering, got %q then %q", entries[0].Manifest.Label, entries[1].Manifest.Label)
	}
	if entries[0].TotalSize == 0 {
		t.Error("expected non-zero total size rollup")
	}
}

func TestHistoryFilterFollowsRename(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)
	meta := metadata.New(repo.MetadataDir())

	writeFile(t, root, "src/a.txt", "content")
	if _, err := snap.Commit("v1", []string{"src/a.txt"}); err != nil {
		t.Fatal(err)
	}

	if err := meta.MoveMetadata("src/a.txt", "src/b.txt"); err != nil {
		t.Fatal("unable to move metadata:", err)
	}

	writeFile(t, root, "other.txt", "unrelated")
	if _, err := snap.Commit("v2", []string{"other.txt"}); err != nil {
		t.Fatal(err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	engine := New(repo)
	entries, err := engine.History(index, "src/b.txt")
	if err != nil {
		t.Fatal("unable to query filtered history:", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 matching manifest, got %d", len(entries))
	}
	if entries[0].Manifest.Label != "v1" {
		t.Errorf("expected the match to be the manifest recorded under the old path, got %q", entries[0].Manifest.Label)
	}
}

func TestHistoryFilterFolderPrefix(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "assets/x", "x")
	writeFile(t, root, "assets/y", "y")
	if _, err := snap.CreateSnapshot("assets", "s1"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "other.txt", "unrelated")
	if _, err := snap.Commit("v2", []string{"other.txt"}); err != nil {
		t.Fatal(err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	engine := New(repo)
	entries, err := engine.History(index, "assets")
	if err != nil {
		t.Fatal("unable to query filtered history:", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 matching manifest, got %d", len(entries))
	}
	if entries[0].Manifest.Label != "s1" {
		t.Errorf("expected the folder snapshot to match, got %q", entries[0].Manifest.Label)
	}
}

func TestHistoryTotalSizeDedupesSharedHash(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "a.txt", "shared content")
	writeFile(t, root, "b.txt", "shared content")
	if _, err := snap.Commit("v1", []string{"a.txt", "b.txt"}); err != nil {
		t.Fatal(err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	var blobSize int64
	for _, record := range index.Objects {
		blobSize = record.Size
	}
	if blobSize == 0 {
		t.Fatal("expected exactly one blob in the index")
	}

	engine := New(repo)

	unfiltered, err := engine.History(index, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(unfiltered) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(unfiltered))
	}
	if unfiltered[0].TotalSize != blobSize {
		t.Errorf("unfiltered TotalSize = %d, expected %d (the single shared blob counted once)", unfiltered[0].TotalSize, blobSize)
	}

	filtered, err := engine.History(index, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 matching manifest, got %d", len(filtered))
	}
	if filtered[0].TotalSize != blobSize {
		t.Errorf("filtered TotalSize = %d, expected %d", filtered[0].TotalSize, blobSize)
	}
}

func TestHistoryFilterMatchesByIdentityWhenPathUnrelated(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)
	meta := metadata.New(repo.MetadataDir())

	writeFile(t, root, "src/a.txt", "content")
	fid, err := meta.GetOrCreateFID("src/a.txt")
	if err != nil {
		t.Fatal("unable to mint FID:", err)
	}
	if _, err := snap.Commit("v1", []string{"src/a.txt"}); err != nil {
		t.Fatal(err)
	}

	// Re-home the metadata record under an unrelated path that shares no
	// prefix or previous-path entry with the manifest's recorded path, so
	// only the FID itself can connect the two.
	if err := meta.MoveMetadata("src/a.txt", "totally/different.txt"); err != nil {
		t.Fatal("unable to move metadata:", err)
	}
	record, err := meta.FindByFID(fid)
	if err != nil || record == nil {
		t.Fatal("unable to look up record by FID after move")
	}
	record.PreviousPaths = nil
	if err := meta.Save(record); err != nil {
		t.Fatal("unable to clear previous paths:", err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	engine := New(repo)
	entries, err := engine.History(index, "totally/different.txt")
	if err != nil {
		t.Fatal("unable to query filtered history:", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the FID-only identity match to find the manifest, got %d entries", len(entries))
	}
}

func TestGetLatestVersionForFilePrefersCurrentHead(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "a.txt", "v1")
	idV1, err := snap.Commit("v1", []string{"a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "a.txt", "v2")
	if _, err := snap.Commit("v2", []string{"a.txt"}); err != nil {
		t.Fatal(err)
	}

	index, err := repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}
	index.CurrentHead = idV1
	if err := repo.SaveIndex(index); err != nil {
		t.Fatal(err)
	}
	index, err = repo.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}

	engine := New(repo)
	version, err := engine.GetLatestVersionForFile(index, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if version != "1.0" {
		t.Errorf("version = %q, expected 1.0 (the checked-out head)", version)
	}
}
