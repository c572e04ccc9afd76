package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/sambabib/depdoctor/pkg/logger"
)

const defaultGoProxyURL = "https://proxy.golang.org"

// GoProxySource resolves modules through the GOPROXY protocol.
type GoProxySource struct {
	RegistryURL string
	client      *Client
}

// NewGoProxySource creates a new GoProxySource. An empty registryURL uses proxy.golang.org.
func NewGoProxySource(client *Client, registryURL string) *GoProxySource {
	if registryURL == "" {
		registryURL = defaultGoProxyURL
	}
	return &GoProxySource{RegistryURL: strings.TrimSuffix(registryURL, "/"), client: client}
}

type goProxyInfo struct {
	Version string `json:"Version"`
	Time    string `json:"Time"`
}

func (s *GoProxySource) Latest(ctx context.Context, name string) (*Release, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid module path %q: %v", ErrNotFound, name, err)
	}

	body, err := s.client.get(ctx, fmt.Sprintf("%s/%s/@latest", s.RegistryURL, escaped), "application/json")
	if err != nil {
		return nil, err
	}
	var info goProxyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: goproxy %s: %v", ErrMalformed, name, err)
	}
	if info.Version == "" {
		return nil, fmt.Errorf("%w: goproxy %s returned no version", ErrMalformed, name)
	}

	rel := &Release{Version: info.Version}

	// Deprecation lives in the latest go.mod's module comment
	escapedVer, err := module.EscapeVersion(info.Version)
	if err != nil {
		return rel, nil
	}
	modURL := fmt.Sprintf("%s/%s/@v/%s.mod", s.RegistryURL, escaped, escapedVer)
	modBody, err := s.client.get(ctx, modURL, "text/plain")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debugf("GoProxy: could not fetch go.mod for %s@%s: %v", name, info.Version, err)
		return rel, nil
	}
	mf, err := modfile.ParseLax(modURL, modBody, nil)
	if err != nil {
		logger.Debugf("GoProxy: could not parse go.mod for %s@%s: %v", name, info.Version, err)
		return rel, nil
	}
	if mf.Module != nil && mf.Module.Deprecated != "" {
		rel.Deprecated = true
		rel.DeprecationMessage = mf.Module.Deprecated
	}
	return rel, nil
}
