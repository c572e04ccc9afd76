// Package scanner locates dependency manifests in a repository tree and
// extracts the dependencies they declare.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
)

// ErrInvalidRoot is returned when the scan root is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid repository path")

// Ignored directories (exact match on folder name)
var ignoredDirs = map[string]struct{}{
	".git":             {},
	".hg":              {},
	".svn":             {},
	"node_modules":     {},
	"bower_components": {},
	"vendor":           {},
	".venv":            {},
	"venv":             {},
	"env":              {},
	"__pycache__":      {},
	".tox":             {},
	"dist":             {},
	"build":            {},
	"target":           {},
	"bin":              {},
	"obj":              {},
	".gradle":          {},
	".idea":            {},
	".vscode":          {},
}

// Options tunes a scan.
type Options struct {
	// Exclude holds glob patterns matched against entry names and
	// slash separated paths relative to the root.
	Exclude []string
	// Ignore reports whether a package of the given ecosystem is left out
	// of the result. Nil keeps every package.
	Ignore func(eco model.Ecosystem, name string) bool
}

// Result is the output of a scan.
type Result struct {
	Root         string                     `json:"root"`
	Manifests    []model.ManifestFile       `json:"manifests"`
	Dependencies []model.DeclaredDependency `json:"dependencies"`
	Warnings     []model.Warning            `json:"warnings"`
}

// Scan walks root and extracts declared dependencies from every recognized
// manifest. It fails only when root is not an existing directory; unreadable
// or malformed manifests are recorded as warnings.
func Scan(root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	// WalkDir does not follow a symlinked root.
	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}

	res := &Result{
		Root:         absRoot,
		Manifests:    []model.ManifestFile{},
		Dependencies: []model.DeclaredDependency{},
		Warnings:     []model.Warning{},
	}

	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		rel := relPath(walkRoot, path)
		if err != nil {
			if path == walkRoot {
				return err
			}
			logger.Debugf("Scanner: error accessing %s: %v", path, err)
			res.Warnings = append(res.Warnings, model.Warning{Path: rel, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != walkRoot && (isIgnoredDir(d.Name()) || excluded(opts.Exclude, d.Name(), rel)) {
				logger.Debugf("Scanner: skipping directory %s", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || excluded(opts.Exclude, d.Name(), rel) {
			return nil
		}

		if format, ok := Recognize(d.Name()); ok {
			logger.Debugf("Scanner: found %s manifest %s", format.Tag, rel)
			res.Manifests = append(res.Manifests, model.ManifestFile{
				Path:      path,
				RelPath:   rel,
				Ecosystem: format.Ecosystem,
				Format:    format.Tag,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}

	sort.Slice(res.Manifests, func(i, j int) bool {
		return res.Manifests[i].RelPath < res.Manifests[j].RelPath
	})

	for _, mf := range res.Manifests {
		deps, err := extract(mf)
		if err != nil {
			logger.Warnf("Scanner: skipping %s: %v", mf.RelPath, err)
			res.Warnings = append(res.Warnings, model.Warning{Path: mf.RelPath, Message: err.Error()})
			continue
		}
		for _, dep := range deps {
			if opts.Ignore != nil && opts.Ignore(dep.Ecosystem, dep.Name) {
				logger.Debugf("Scanner: ignoring package %s from %s", dep.Name, mf.RelPath)
				continue
			}
			res.Dependencies = append(res.Dependencies, dep)
		}
	}

	logger.Debugf("Scanner: %d manifests, %d dependencies, %d warnings",
		len(res.Manifests), len(res.Dependencies), len(res.Warnings))
	return res, nil
}

// extract reads and parses one manifest.
func extract(mf model.ManifestFile) ([]model.DeclaredDependency, error) {
	format, ok := Recognize(filepath.Base(mf.Path))
	if !ok {
		return nil, fmt.Errorf("unrecognized manifest %s", mf.RelPath)
	}
	content, err := os.ReadFile(mf.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", mf.RelPath, err)
	}
	reqs, err := format.Parse(content)
	if err != nil {
		return nil, err
	}

	deps := make([]model.DeclaredDependency, 0, len(reqs))
	for _, r := range reqs {
		name := model.NormalizeName(mf.Ecosystem, r.Name)
		if name == "" {
			continue
		}
		scope := r.Scope
		if scope == "" {
			scope = model.ScopeRuntime
		}
		deps = append(deps, model.DeclaredDependency{
			Ecosystem:  mf.Ecosystem,
			Name:       name,
			RawName:    strings.TrimSpace(r.Name),
			Constraint: strings.TrimSpace(r.Constraint),
			Scope:      scope,
			Manifest:   mf.RelPath,
		})
	}
	return deps, nil
}

func isIgnoredDir(name string) bool {
	_, ok := ignoredDirs[name]
	return ok
}

func excluded(patterns []string, name, rel string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
