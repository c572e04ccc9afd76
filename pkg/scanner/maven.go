package scanner

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
)

// PomXML represents the parts of a Maven pom.xml we read
type PomXML struct {
	XMLName      xml.Name        `xml:"project"`
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Parent       PomParent       `xml:"parent"`
	Properties   PomProperties   `xml:"properties"`
	Dependencies []PomDependency `xml:"dependencies>dependency"`
	Managed      []PomDependency `xml:"dependencyManagement>dependencies>dependency"`
}

// PomParent represents the parent section in a pom.xml
type PomParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// PomProperties holds arbitrary <properties> children.
type PomProperties struct {
	Entries []PomProperty `xml:",any"`
}

// PomProperty is one <name>value</name> entry under <properties>.
type PomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// PomDependency represents a dependency in a pom.xml
type PomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ParsePom extracts direct and managed dependencies from a pom.xml.
// Version properties are resolved from <properties> and the project
// coordinates; unresolvable references are kept verbatim.
func ParsePom(content []byte) ([]Requirement, error) {
	var pom PomXML
	if err := xml.Unmarshal(content, &pom); err != nil {
		return nil, fmt.Errorf("invalid pom.xml: %w", err)
	}

	props := map[string]string{}
	for _, p := range pom.Properties.Entries {
		props[p.XMLName.Local] = strings.TrimSpace(p.Value)
	}
	projectVersion := pom.Version
	if projectVersion == "" {
		projectVersion = pom.Parent.Version
	}
	for _, key := range []string{"project.version", "pom.version", "version"} {
		if projectVersion != "" {
			props[key] = projectVersion
		}
	}
	if pom.Parent.Version != "" {
		props["project.parent.version"] = pom.Parent.Version
	}

	var reqs []Requirement
	for _, deps := range [][]PomDependency{pom.Dependencies, pom.Managed} {
		for _, dep := range deps {
			if dep.GroupID == "" || dep.ArtifactID == "" {
				logger.Debugf("Maven: skipping dependency with incomplete coordinates %s:%s", dep.GroupID, dep.ArtifactID)
				continue
			}
			reqs = append(reqs, Requirement{
				Name:       strings.TrimSpace(dep.GroupID) + ":" + strings.TrimSpace(dep.ArtifactID),
				Constraint: resolveProperties(strings.TrimSpace(dep.Version), props),
				Scope:      mavenScope(dep),
			})
		}
	}
	return reqs, nil
}

// resolveProperties expands ${...} references, following chained properties
// a bounded number of times.
func resolveProperties(version string, props map[string]string) string {
	for i := 0; i < 5 && strings.Contains(version, "${"); i++ {
		version = propertyRef.ReplaceAllStringFunc(version, func(ref string) string {
			if v, ok := props[ref[2:len(ref)-1]]; ok {
				return v
			}
			return ref
		})
	}
	if strings.Contains(version, "${") {
		logger.Debugf("Maven: could not resolve version property %s", version)
	}
	return version
}

func mavenScope(dep PomDependency) model.Scope {
	if strings.EqualFold(strings.TrimSpace(dep.Optional), "true") {
		return model.ScopeOptional
	}
	switch strings.ToLower(strings.TrimSpace(dep.Scope)) {
	case "test":
		return model.ScopeTest
	case "provided", "system":
		return model.ScopeBuild
	default:
		return model.ScopeRuntime
	}
}
