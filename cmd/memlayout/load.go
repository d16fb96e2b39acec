package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/frontend/gosrc"
	"github.com/wippyai/memlayout/frontend/layoutfile"
	"github.com/wippyai/memlayout/layout"
)

// unit is everything read from one -in argument.
type unit struct {
	source string
	pkg    string
	inputs []layout.Input
}

// load picks the front end by path: a directory is a Go package, .go a
// single Go file, and .yaml/.yml/.json a layout file.
func load(path string) (*unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}
	u := &unit{source: filepath.Base(path)}

	if info.IsDir() {
		files, err := gosrc.ParseDir(path)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if u.pkg == "" {
				u.pkg = f.Package
			}
			u.inputs = append(u.inputs, f.Inputs...)
		}
		return u, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		f, err := gosrc.ParseFile(path, nil)
		if err != nil {
			return nil, err
		}
		u.pkg = f.Package
		u.inputs = f.Inputs
	case ".yaml", ".yml", ".json":
		docs, err := layoutfile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if u.pkg == "" {
				u.pkg = d.Package
			}
			u.inputs = append(u.inputs, d.Inputs...)
		}
	default:
		return nil, errors.Unsupported(errors.PhaseParse, path, "input must be a Go file, a directory or a .yaml/.yml/.json layout file")
	}
	return u, nil
}
