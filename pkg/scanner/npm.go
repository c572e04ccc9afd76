package scanner

import (
	"encoding/json"
	"fmt"

	"github.com/sambabib/depdoctor/pkg/model"
)

// packageJSON represents the dependency sections of package.json
type packageJSON struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// ParsePackageJSON extracts every dependency section of an npm package.json.
func ParsePackageJSON(content []byte) ([]Requirement, error) {
	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package.json: %w", err)
	}

	var reqs []Requirement
	reqs = appendSection(reqs, pkg.Dependencies, model.ScopeRuntime)
	reqs = appendSection(reqs, pkg.DevDependencies, model.ScopeDevelopment)
	reqs = appendSection(reqs, pkg.OptionalDependencies, model.ScopeOptional)
	reqs = appendSection(reqs, pkg.PeerDependencies, model.ScopeOptional)
	return reqs, nil
}

// appendSection adds a name -> range map in name order, since map iteration is random.
func appendSection(reqs []Requirement, section map[string]string, scope model.Scope) []Requirement {
	for _, name := range sortedKeys(section) {
		reqs = append(reqs, Requirement{Name: name, Constraint: section[name], Scope: scope})
	}
	return reqs
}
