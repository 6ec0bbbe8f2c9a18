package repository

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesLayout(t *testing.T) {
	root := t.TempDir()

	repo, err := Init(root, "")
	if err != nil {
		t.Fatal("unable to initialize repository:", err)
	}
	defer repo.Close()

	for _, dir := range []string{repo.ObjectsDir(), repo.VersionsDir(), repo.MetadataDir(), repo.AttachmentsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %q to exist", dir)
		}
	}

	if _, err := os.Stat(repo.IndexPath()); err != nil {
		t.Error("expected index file to exist after init")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	root := t.TempDir()

	first, err := Init(root, "")
	if err != nil {
		t.Fatal("unable to initialize repository:", err)
	}
	first.Close()

	index, err := (&Repository{ProjectRoot: root, DraftRoot: root}).LoadIndex()
	if err != nil {
		t.Fatal("unable to load index:", err)
	}
	index.Objects["sha256:deadbeef"] = &ObjectRecord{Size: 4, RefCount: 1}
	if err := (&Repository{ProjectRoot: root, DraftRoot: root}).SaveIndex(index); err != nil {
		t.Fatal("unable to save index:", err)
	}

	second, err := Init(root, "")
	if err != nil {
		t.Fatal("unable to re-initialize repository:", err)
	}
	defer second.Close()

	reloaded, err := second.LoadIndex()
	if err != nil {
		t.Fatal("unable to reload index:", err)
	}
	if _, ok := reloaded.Objects["sha256:deadbeef"]; !ok {
		t.Error("re-initializing the repository discarded existing index contents")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "")
	if err != nil {
		t.Fatal("unable to initialize repository:", err)
	}
	defer repo.Close()

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal("unable to create nested directory:", err)
	}

	found, ok, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if !ok {
		t.Fatal("expected to find project root")
	}
	if found != root {
		t.Errorf("found root %q, expected %q", found, root)
	}
}

func TestFindProjectRootNotFound(t *testing.T) {
	root := t.TempDir()
	_, ok, err := FindProjectRoot(root)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if ok {
		t.Error("expected no project root to be found")
	}
}
