package main

import (
	"errors"
	"os"

	"github.com/draftvcs/draft/pkg/engine"
)

// openEngine locates the repository containing the current working
// directory and opens it. When --draft-root or --global is set and no
// in-tree repository is found, the current working directory is taken as
// the project root. It does not create a new repository; use initCommand
// for that.
func openEngine() (*engine.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, ok, err := engine.FindProjectRoot(cwd)
	if err != nil {
		return nil, err
	}
	if !ok {
		if rootConfiguration.draftRoot == "" && !rootConfiguration.global {
			return nil, errors.New("not inside a draft repository (run \"draft init\" first)")
		}
		root = cwd
	}

	return engine.Open(root, resolveDraftRoot(root))
}
