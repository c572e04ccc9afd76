package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const defaultNpmRegistryURL = "https://registry.npmjs.org"

// npmAbbreviated asks the registry for the small install-time document.
const npmAbbreviated = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"

// NpmSource resolves packages against the npm registry.
type NpmSource struct {
	RegistryURL string
	client      *Client
}

// NewNpmSource creates a new NpmSource. An empty registryURL uses the public registry.
func NewNpmSource(client *Client, registryURL string) *NpmSource {
	if registryURL == "" {
		registryURL = defaultNpmRegistryURL
	}
	return &NpmSource{RegistryURL: strings.TrimSuffix(registryURL, "/"), client: client}
}

// npmPackument is the subset of a registry document we read.
type npmPackument struct {
	DistTags   struct{ Latest string `json:"latest"` } `json:"dist-tags"`
	Deprecated any                                      `json:"deprecated"`
	Versions   map[string]struct {
		Deprecated any `json:"deprecated"`
	} `json:"versions"`
}

func (s *NpmSource) Latest(ctx context.Context, name string) (*Release, error) {
	// Scoped names keep the @ but escape the slash: @babel%2Fcore
	body, err := s.client.get(ctx, fmt.Sprintf("%s/%s", s.RegistryURL, url.PathEscape(name)), npmAbbreviated)
	if err != nil {
		return nil, err
	}

	var pkgInfo npmPackument
	if err := json.Unmarshal(body, &pkgInfo); err != nil {
		return nil, fmt.Errorf("%w: npm %s: %v", ErrMalformed, name, err)
	}
	latest := strings.TrimSpace(pkgInfo.DistTags.Latest)
	if latest == "" {
		return nil, fmt.Errorf("%w: npm %s has no latest dist-tag", ErrMalformed, name)
	}

	rel := &Release{Version: latest}
	msg := deprecationText(pkgInfo.Deprecated)
	if v, ok := pkgInfo.Versions[latest]; ok && msg == "" {
		msg = deprecationText(v.Deprecated)
	}
	if msg != "" {
		rel.Deprecated = true
		rel.DeprecationMessage = msg
	}
	return rel, nil
}

// deprecationText normalizes npm's deprecated field, which is a message
// string when set and occasionally a bare boolean.
func deprecationText(v any) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case bool:
		if d {
			return "deprecated"
		}
	}
	return ""
}
