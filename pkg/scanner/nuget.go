package scanner

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/sambabib/depdoctor/pkg/model"
)

// CsprojProject represents the root of a .csproj file.
type CsprojProject struct {
	XMLName    xml.Name    `xml:"Project"`
	ItemGroups []ItemGroup `xml:"ItemGroup"`
}

// ItemGroup contains a list of PackageReferences.
type ItemGroup struct {
	PackageReferences []PackageReference `xml:"PackageReference"`
	Condition         string             `xml:"Condition,attr"`
}

// PackageReference represents a NuGet package dependency.
type PackageReference struct {
	Include        string `xml:"Include,attr"` // Package ID
	Version        string `xml:"Version,attr"` // Version string from attribute
	VersionElement string `xml:"Version"`      // Version string from child <Version> element
	PrivateAssets  string `xml:"PrivateAssets,attr"`
}

// packagesConfig is the legacy packages.config layout.
type packagesConfig struct {
	XMLName  xml.Name `xml:"packages"`
	Packages []struct {
		ID                    string `xml:"id,attr"`
		Version               string `xml:"version,attr"`
		DevelopmentDependency bool   `xml:"developmentDependency,attr"`
	} `xml:"package"`
}

// ParseCsproj extracts PackageReference items from an SDK-style project.
func ParseCsproj(content []byte) ([]Requirement, error) {
	var project CsprojProject
	if err := xml.Unmarshal(content, &project); err != nil {
		return nil, fmt.Errorf("invalid .csproj: %w", err)
	}

	var reqs []Requirement
	for _, group := range project.ItemGroups {
		for _, ref := range group.PackageReferences {
			if strings.TrimSpace(ref.Include) == "" {
				continue
			}
			version := ref.Version
			if version == "" {
				version = ref.VersionElement
			}
			scope := model.ScopeRuntime
			if strings.EqualFold(strings.TrimSpace(ref.PrivateAssets), "all") {
				scope = model.ScopeDevelopment
			}
			reqs = append(reqs, Requirement{
				Name:       ref.Include,
				Constraint: strings.TrimSpace(version),
				Scope:      scope,
			})
		}
	}
	return reqs, nil
}

// ParsePackagesConfig extracts packages from a legacy packages.config.
func ParsePackagesConfig(content []byte) ([]Requirement, error) {
	var cfg packagesConfig
	if err := xml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("invalid packages.config: %w", err)
	}

	var reqs []Requirement
	for _, p := range cfg.Packages {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		scope := model.ScopeRuntime
		if p.DevelopmentDependency {
			scope = model.ScopeDevelopment
		}
		// packages.config always pins an exact version
		constraint := strings.TrimSpace(p.Version)
		if constraint != "" {
			constraint = "[" + constraint + "]"
		}
		reqs = append(reqs, Requirement{Name: p.ID, Constraint: constraint, Scope: scope})
	}
	return reqs, nil
}
