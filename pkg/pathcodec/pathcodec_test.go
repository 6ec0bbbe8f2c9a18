package pathcodec

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a/b/c":     "a/b/c",
		"./a/b":     "a/b",
		"a//b":      "a/b",
		"a/b/":      "a/b",
		".":         RootScope,
		"a\\b\\c":   "a/b/c",
		"./a/../b":  "a/../b",
	}
	for input, expected := range cases {
		got, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Errorf("Normalize(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	if _, err := Normalize(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNormalizeRejectsAbsolute(t *testing.T) {
	if _, err := Normalize("/a/b"); err == nil {
		t.Fatal("expected error for absolute path")
	}
}

func TestIEquals(t *testing.T) {
	if !IEquals("A/B.txt", "a/b.TXT") {
		t.Error("expected case-insensitive paths to match")
	}
	if Equals("A/B.txt", "a/b.TXT") {
		t.Error("expected case-sensitive comparison to differ")
	}
}

func TestIsAncestor(t *testing.T) {
	if !IsAncestor("assets", "assets/x.png") {
		t.Error("expected assets to be an ancestor of assets/x.png")
	}
	if IsAncestor("assets", "assetsFoo/x.png") {
		t.Error("expected boundary check to reject partial segment match")
	}
	if !IsAncestor(RootScope, "assets/x.png") {
		t.Error("expected root scope to be an ancestor of every path")
	}
}
