package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sambabib/depdoctor/pkg/model"
)

type pyProject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

// ParsePyProject reads PEP 621 [project] dependencies and Poetry tables.
func ParsePyProject(content []byte) ([]Requirement, error) {
	var doc pyProject
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid pyproject.toml: %w", err)
	}

	var reqs []Requirement
	add := func(lines []string, scope model.Scope) error {
		for _, line := range lines {
			req, ok, err := parseRequirementLine(line)
			if err != nil {
				return err
			}
			if ok {
				req.Scope = scope
				reqs = append(reqs, req)
			}
		}
		return nil
	}

	if err := add(doc.Project.Dependencies, model.ScopeRuntime); err != nil {
		return nil, err
	}
	for _, extra := range sortedKeys(doc.Project.OptionalDependencies) {
		if err := add(doc.Project.OptionalDependencies[extra], model.ScopeOptional); err != nil {
			return nil, err
		}
	}

	poetry := doc.Tool.Poetry
	reqs = appendTOMLTable(reqs, poetry.Dependencies, model.ScopeRuntime)
	reqs = appendTOMLTable(reqs, poetry.DevDependencies, model.ScopeDevelopment)
	for _, group := range sortedKeys(poetry.Group) {
		scope := model.ScopeDevelopment
		if group == "main" {
			scope = model.ScopeRuntime
		}
		reqs = appendTOMLTable(reqs, poetry.Group[group].Dependencies, scope)
	}
	return reqs, nil
}

// ParsePipfile reads the [packages] and [dev-packages] tables of a Pipfile.
func ParsePipfile(content []byte) ([]Requirement, error) {
	var doc pipfile
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid Pipfile: %w", err)
	}

	var reqs []Requirement
	reqs = appendTOMLTable(reqs, doc.Packages, model.ScopeRuntime)
	reqs = appendTOMLTable(reqs, doc.DevPackages, model.ScopeDevelopment)
	return reqs, nil
}

// appendTOMLTable adds entries of a name = "constraint" or
// name = { version = "..." } table. The python interpreter pin and
// git/path/url sources are skipped.
func appendTOMLTable(reqs []Requirement, table map[string]any, scope model.Scope) []Requirement {
	for _, name := range sortedKeys(table) {
		if strings.EqualFold(name, "python") {
			continue
		}
		var constraint string
		switch v := table[name].(type) {
		case string:
			constraint = v
		case map[string]any:
			if _, ok := v["git"]; ok {
				continue
			}
			if _, ok := v["path"]; ok {
				continue
			}
			if _, ok := v["url"]; ok {
				continue
			}
			constraint, _ = v["version"].(string)
		default:
			continue
		}
		reqs = append(reqs, Requirement{
			Name:       name,
			Constraint: strings.Join(strings.Fields(constraint), ""),
			Scope:      scope,
		})
	}
	return reqs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
