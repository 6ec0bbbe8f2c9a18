// Package pathcodec normalizes and compares the relative paths that cross
// the engine boundary so that every component agrees on a single canonical
// representation regardless of the originating platform.
package pathcodec

import (
	"strings"

	"github.com/draftvcs/draft/pkg/errs"
)

// RootScope is the sentinel value used for a scope representing the entire
// project root, as opposed to a subtree.
const RootScope = "."

// Normalize converts p to the engine's canonical form: forward slashes,
// no leading "./", no trailing separator, and no repeated separators.
// Comparisons on the result are case-sensitive; use Equals/IEquals for
// comparisons that need to tolerate case.
func Normalize(p string) (string, error) {
	if p == "" {
		return "", &errs.InvalidPath{Reason: "path is empty"}
	}
	if p == "." {
		return RootScope, nil
	}

	converted := strings.ReplaceAll(p, "\\", "/")

	if strings.HasPrefix(converted, "/") {
		return "", &errs.InvalidPath{Path: p, Reason: "absolute path where relative path required"}
	}

	segments := strings.Split(converted, "/")
	kept := segments[:0]
	for _, segment := range segments {
		if segment == "" || segment == "." {
			continue
		}
		kept = append(kept, segment)
	}

	if len(kept) == 0 {
		return RootScope, nil
	}

	return strings.Join(kept, "/"), nil
}

// Equals reports whether a and b refer to the same normalized path, using a
// case-sensitive comparison.
func Equals(a, b string) bool {
	return a == b
}

// IEquals reports whether a and b refer to the same normalized path under a
// case-insensitive comparison, tolerating data originating from
// case-insensitive (e.g. Windows-originated) file systems.
func IEquals(a, b string) bool {
	return strings.EqualFold(a, b)
}

// IsAncestor reports whether child lies within the subtree rooted at
// parent. A path is never considered its own descendant; parent must be a
// strict, slash-delimited ancestor of child.
func IsAncestor(parent, child string) bool {
	if parent == RootScope {
		return child != RootScope
	}
	return strings.HasPrefix(child, parent+"/")
}

// IIsAncestor is the case-insensitive variant of IsAncestor.
func IIsAncestor(parent, child string) bool {
	if strings.EqualFold(parent, RootScope) {
		return !strings.EqualFold(child, RootScope)
	}
	return len(child) > len(parent)+1 &&
		strings.EqualFold(child[:len(parent)], parent) &&
		child[len(parent)] == '/'
}
