package restore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"

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

func readFile(t *testing.T, root, relative string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, relative))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRestoreRenameChase(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)
	meta := metadata.New(repo.MetadataDir())

	writeFile(t, root, "src/a.txt", "version one")
	v1, err := snap.Commit("v1", []string{"src/a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	if err := meta.MoveMetadata("src/a.txt", "src/b.txt"); err != nil {
		t.Fatal("unable to move metadata:", err)
	}
	if err := os.Rename(filepath.Join(root, "src/a.txt"), filepath.Join(root, "src/b.txt")); err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "src/b.txt", "version two")
	if _, err := snap.Commit("v2", []string{"src/b.txt"}); err != nil {
		t.Fatal(err)
	}

	restoreEngine := New(repo)
	if err := restoreEngine.Restore(v1, Options{}); err != nil {
		t.Fatal("unable to restore v1:", err)
	}

	if _, err := os.Stat(filepath.Join(root, "src/a.txt")); err == nil {
		t.Error("expected src/a.txt not to be recreated")
	}
	if got := readFile(t, root, "src/b.txt"); got != "version one" {
		t.Errorf("src/b.txt content = %q, expected %q", got, "version one")
	}
}

func TestRestoreScopedCleaning(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "assets/x", "x")
	writeFile(t, root, "assets/y", "y")
	v1, err := snap.CreateSnapshot("assets", "s1")
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "assets/z", "z")

	restoreEngine := New(repo)
	if err := restoreEngine.Restore(v1, Options{}); err != nil {
		t.Fatal("unable to restore:", err)
	}

	if _, err := os.Stat(filepath.Join(root, "assets/z")); err == nil {
		t.Error("expected assets/z to be deleted by scoped cleaning")
	}
	if got := readFile(t, root, "assets/x"); got != "x" {
		t.Errorf("assets/x content = %q, expected x", got)
	}
	if got := readFile(t, root, "assets/y"); got != "y" {
		t.Errorf("assets/y content = %q, expected y", got)
	}
}

func TestRestoreSkipsMissingBlobAndContinues(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "a.txt", "content a")
	writeFile(t, root, "b.txt", "content b")
	v1, err := snap.Commit("v1", []string{"a.txt", "b.txt"})
	if err != nil {
		t.Fatal(err)
	}

	os.Remove(filepath.Join(root, "a.txt"))
	os.Remove(filepath.Join(root, "b.txt"))

	h := digest.Canonical.FromBytes([]byte("content a"))
	if err := os.Remove(filepath.Join(repo.ObjectsDir(), h.Encoded())); err != nil {
		t.Fatal("unable to remove blob for a.txt:", err)
	}

	restoreEngine := New(repo)
	if err := restoreEngine.Restore(v1, Options{}); err != nil {
		t.Fatal("restore returned an error instead of skipping the missing blob:", err)
	}

	if _, err := os.Stat(filepath.Join(root, "a.txt")); err == nil {
		t.Error("expected a.txt to remain absent since its blob was missing")
	}
	if got := readFile(t, root, "b.txt"); got != "content b" {
		t.Errorf("b.txt content = %q, expected %q; restore should have continued past the missing blob", got, "content b")
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	repo, root := newTestRepo(t)
	snap := snapshot.New(repo)

	writeFile(t, root, "a.txt", "content")
	v1, err := snap.Commit("v1", []string{"a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	restoreEngine := New(repo)
	if err := restoreEngine.Restore(v1, Options{}); err != nil {
		t.Fatal(err)
	}
	firstInfo, err := os.Stat(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}

	if err := restoreEngine.Restore(v1, Options{}); err != nil {
		t.Fatal(err)
	}
	secondInfo, err := os.Stat(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}

	if firstInfo.Size() != secondInfo.Size() {
		t.Error("repeated restore changed file size")
	}
	if got := readFile(t, root, "a.txt"); got != "content" {
		t.Errorf("content = %q, expected %q", got, "content")
	}
}
