package main

import (
	"path/filepath"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/draftvcs/draft/pkg/filesystem"
)

// resolveDraftRoot applies rootConfiguration's --draft-root/--global flags
// against projectRoot. --draft-root takes an explicit path; --global
// derives a per-project directory under the user's home directory, keyed
// by a hash of the project's absolute path so distinct projects never
// collide there.
func resolveDraftRoot(projectRoot string) string {
	if rootConfiguration.draftRoot != "" {
		return rootConfiguration.draftRoot
	}
	if !rootConfiguration.global {
		return ""
	}

	key := strconv.FormatUint(xxh3.HashString(projectRoot), 16)
	return filepath.Join(filesystem.HomeDirectory, ".draft", "repositories", filepath.Base(projectRoot)+"-"+key)
}
