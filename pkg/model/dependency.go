package model

import "fmt"

// Scope indicates when a dependency is required.
type Scope string

const (
	ScopeRuntime     Scope = "runtime"
	ScopeDevelopment Scope = "development"
	ScopeTest        Scope = "test"
	ScopeBuild       Scope = "build"
	ScopeOptional    Scope = "optional"
)

// ManifestFile is a discovered dependency-declaration file.
type ManifestFile struct {
	Path      string    `json:"-"`
	RelPath   string    `json:"path"`
	Ecosystem Ecosystem `json:"ecosystem"`
	Format    string    `json:"format"`
}

// Key is the join key between declarations and version facts.
type Key struct {
	Ecosystem Ecosystem
	Name      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Ecosystem, k.Name)
}

// DeclaredDependency is one package requirement extracted from a manifest.
type DeclaredDependency struct {
	Ecosystem  Ecosystem `json:"ecosystem"`
	Name       string    `json:"name"`     // normalized
	RawName    string    `json:"raw_name"` // as written in the manifest
	Constraint string    `json:"constraint"`
	Scope      Scope     `json:"scope,omitempty"`
	Manifest   string    `json:"manifest"` // RelPath of the originating ManifestFile
}

// Key returns the (ecosystem, normalized name) pair used downstream.
func (d DeclaredDependency) Key() Key {
	return Key{Ecosystem: d.Ecosystem, Name: d.Name}
}
