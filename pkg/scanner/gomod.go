package scanner

import (
	"fmt"

	"golang.org/x/mod/modfile"

	"github.com/sambabib/depdoctor/pkg/model"
)

// ParseGoMod extracts the direct requirements of a go.mod file. Indirect
// requirements are transitive and left out.
func ParseGoMod(content []byte) ([]Requirement, error) {
	f, err := modfile.ParseLax("go.mod", content, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid go.mod: %w", err)
	}

	var reqs []Requirement
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		reqs = append(reqs, Requirement{
			Name:       r.Mod.Path,
			Constraint: r.Mod.Version,
			Scope:      model.ScopeRuntime,
		})
	}
	return reqs, nil
}
