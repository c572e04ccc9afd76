package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/versioning"
)

const defaultNuGetRegistryURL = "https://api.nuget.org/v3/index.json" // Service Index

// NuGetSource resolves packages against a NuGet v3 feed.
type NuGetSource struct {
	RegistryURL string // Service index URL
	client      *Client

	mu              sync.Mutex
	registrationURL string
}

// NewNuGetSource creates a new NuGetSource. An empty registryURL uses nuget.org.
func NewNuGetSource(client *Client, registryURL string) *NuGetSource {
	if registryURL == "" {
		registryURL = defaultNuGetRegistryURL
	}
	return &NuGetSource{RegistryURL: registryURL, client: client}
}

// NuGetServiceIndex is for parsing the /v3/index.json response
type NuGetServiceIndex struct {
	Resources []NuGetResource `json:"resources"`
}

// NuGetResource represents a resource in the service index.
type NuGetResource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"` // We're looking for types like "RegistrationsBaseUrl/3.6.0"
}

// NuGetRegistrationIndex is for the response from {registrations}/{package_id}/index.json
type NuGetRegistrationIndex struct {
	Items []NuGetRegistrationPage `json:"items"`
}

// NuGetRegistrationPage holds version leaves. Large packages leave Items
// empty and must be fetched through ID.
type NuGetRegistrationPage struct {
	ID    string                  `json:"@id"`
	Items []NuGetRegistrationLeaf `json:"items,omitempty"`
	Lower string                  `json:"lower,omitempty"`
	Upper string                  `json:"upper,omitempty"`
	Count int                     `json:"count,omitempty"`
}

// NuGetRegistrationLeaf represents a specific version of a package.
type NuGetRegistrationLeaf struct {
	CatalogEntry NuGetCatalogEntry `json:"catalogEntry"`
	Listed       *bool             `json:"listed,omitempty"`
}

// NuGetCatalogEntry contains details like version and deprecation.
type NuGetCatalogEntry struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Deprecation *NuGetDeprecation `json:"deprecation,omitempty"`
	Listed      *bool             `json:"listed,omitempty"` // absent means listed
}

// NuGetDeprecation holds information about package deprecation.
type NuGetDeprecation struct {
	Reasons          []string          `json:"reasons"`
	Message          string            `json:"message,omitempty"`
	AlternatePackage *AlternatePackage `json:"alternatePackage,omitempty"`
}

// AlternatePackage provides info if a package is deprecated in favor of another.
type AlternatePackage struct {
	ID    string `json:"id"`
	Range string `json:"range,omitempty"`
}

func (s *NuGetSource) Latest(ctx context.Context, name string) (*Release, error) {
	base, err := s.registrationsBase(ctx)
	if err != nil {
		return nil, err
	}

	packageID := strings.ToLower(name) // NuGet package IDs are case-insensitive in the registry
	body, err := s.client.get(ctx, fmt.Sprintf("%s%s/index.json", base, packageID), "application/json")
	if err != nil {
		return nil, err
	}

	var regIndex NuGetRegistrationIndex
	if err := json.Unmarshal(body, &regIndex); err != nil {
		return nil, fmt.Errorf("%w: nuget %s: %v", ErrMalformed, name, err)
	}

	var leaves []NuGetRegistrationLeaf
	for _, page := range regIndex.Items {
		if len(page.Items) == 0 && page.ID != "" {
			pageBody, err := s.client.get(ctx, page.ID, "application/json")
			if err != nil {
				return nil, err
			}
			var full NuGetRegistrationPage
			if err := json.Unmarshal(pageBody, &full); err != nil {
				return nil, fmt.Errorf("%w: nuget %s page: %v", ErrMalformed, name, err)
			}
			page = full
		}
		leaves = append(leaves, page.Items...)
	}

	entry := latestNuGetEntry(leaves)
	if entry == nil {
		return nil, fmt.Errorf("%w: nuget %s lists no version", ErrMalformed, name)
	}

	rel := &Release{Version: entry.Version}
	if d := entry.Deprecation; d != nil {
		rel.Deprecated = true
		rel.DeprecationMessage = nugetDeprecationText(d)
	}
	return rel, nil
}

// registrationsBase fetches the service index and remembers the
// RegistrationsBaseUrl it advertises. The lock is not held during the
// request, so concurrent first lookups may each fetch the index; only a
// successful result is stored.
func (s *NuGetSource) registrationsBase(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.registrationURL
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	logger.Debugf("NuGet: Fetching service index from %s", s.RegistryURL)
	body, err := s.client.get(ctx, s.RegistryURL, "application/json")
	if err != nil {
		return "", err
	}
	var serviceIndex NuGetServiceIndex
	if err := json.Unmarshal(body, &serviceIndex); err != nil {
		return "", fmt.Errorf("%w: nuget service index: %v", ErrMalformed, err)
	}
	var base string
	for _, resource := range serviceIndex.Resources {
		// Common types: "RegistrationsBaseUrl", "RegistrationsBaseUrl/3.6.0"
		if strings.HasPrefix(resource.Type, "RegistrationsBaseUrl") {
			base = resource.ID
			break
		}
	}
	if base == "" {
		return "", fmt.Errorf("%w: no RegistrationsBaseUrl in service index at %s", ErrMalformed, s.RegistryURL)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	s.mu.Lock()
	s.registrationURL = base
	s.mu.Unlock()
	logger.Debugf("NuGet: Using RegistrationsBaseUrl: %s", base)
	return base, nil
}

// latestNuGetEntry prefers the highest listed stable version and falls back
// to the highest listed prerelease.
func latestNuGetEntry(leaves []NuGetRegistrationLeaf) *NuGetCatalogEntry {
	scheme := versioning.For(model.DotNet)
	var stable, pre *semver.Version
	var stableEntry, preEntry *NuGetCatalogEntry

	for i := range leaves {
		leaf := &leaves[i]
		isListed := leaf.CatalogEntry.Listed == nil || *leaf.CatalogEntry.Listed
		if leaf.Listed != nil && !*leaf.Listed {
			isListed = false
		}
		if !isListed {
			continue
		}

		v, err := scheme.Parse(leaf.CatalogEntry.Version)
		if err != nil {
			logger.Debugf("NuGet: Could not parse version %s: %v", leaf.CatalogEntry.Version, err)
			continue
		}
		if v.Prerelease() == "" {
			if stable == nil || versioning.Compare(v, stable) > 0 {
				stable, stableEntry = v, &leaf.CatalogEntry
			}
		} else if pre == nil || versioning.Compare(v, pre) > 0 {
			pre, preEntry = v, &leaf.CatalogEntry
		}
	}
	if stableEntry != nil {
		return stableEntry
	}
	return preEntry
}

func nugetDeprecationText(d *NuGetDeprecation) string {
	msg := strings.TrimSpace(d.Message)
	if msg == "" && len(d.Reasons) > 0 {
		msg = strings.Join(d.Reasons, ", ")
	}
	if d.AlternatePackage != nil && d.AlternatePackage.ID != "" {
		if msg != "" {
			msg += "; "
		}
		msg += "use " + d.AlternatePackage.ID + " instead"
	}
	if msg == "" {
		msg = "deprecated"
	}
	return msg
}
