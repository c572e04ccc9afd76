package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/versioning"
)

const defaultPipRegistryURL = "https://pypi.org/pypi"

const inactiveClassifier = "Development Status :: 7 - Inactive"

// PyPISource resolves packages against the PyPI JSON API.
type PyPISource struct {
	RegistryURL string
	client      *Client
}

// NewPyPISource creates a new PyPISource. An empty registryURL uses pypi.org.
func NewPyPISource(client *Client, registryURL string) *PyPISource {
	if registryURL == "" {
		registryURL = defaultPipRegistryURL
	}
	return &PyPISource{RegistryURL: strings.TrimSuffix(registryURL, "/"), client: client}
}

// PipPackageInfo represents the structure of the JSON response from PyPI for a package.
type PipPackageInfo struct {
	Info     PipInfo                         `json:"info"`
	Releases map[string][]PipReleaseFileInfo `json:"releases"`
}

// PipInfo contains metadata about the package.
type PipInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"` // Latest overall version
	Yanked       bool     `json:"yanked"`
	YankedReason string   `json:"yanked_reason"`
	Classifiers  []string `json:"classifiers"`
}

// PipReleaseFileInfo contains information about a specific file in a release.
type PipReleaseFileInfo struct {
	Filename     string `json:"filename"`
	Packagetype  string `json:"packagetype"` // e.g., "sdist", "bdist_wheel"
	Yanked       bool   `json:"yanked"`
	YankedReason string `json:"yanked_reason"`
}

func (s *PyPISource) Latest(ctx context.Context, name string) (*Release, error) {
	body, err := s.client.get(ctx, fmt.Sprintf("%s/%s/json", s.RegistryURL, url.PathEscape(name)), "application/json")
	if err != nil {
		return nil, err
	}

	var pkgInfo PipPackageInfo
	if err := json.Unmarshal(body, &pkgInfo); err != nil {
		return nil, fmt.Errorf("%w: pypi %s: %v", ErrMalformed, name, err)
	}

	latest := latestStablePipVersion(pkgInfo.Releases)
	if latest == "" {
		// Packages with only pre-releases, or a trimmed releases map
		latest = strings.TrimSpace(pkgInfo.Info.Version)
	}
	if latest == "" {
		return nil, fmt.Errorf("%w: pypi %s lists no usable release", ErrMalformed, name)
	}

	rel := &Release{Version: latest}
	for _, c := range pkgInfo.Info.Classifiers {
		if strings.TrimSpace(c) == inactiveClassifier {
			rel.Deprecated = true
			rel.DeprecationMessage = "project is marked " + inactiveClassifier
		}
	}
	if pkgInfo.Info.Yanked && pkgInfo.Info.Version == latest {
		rel.Deprecated = true
		rel.DeprecationMessage = "latest release is yanked"
		if pkgInfo.Info.YankedReason != "" {
			rel.DeprecationMessage += ": " + pkgInfo.Info.YankedReason
		}
	}
	return rel, nil
}

// latestStablePipVersion picks the highest non-prerelease release that has
// at least one non-yanked file. It returns "" if there is none.
func latestStablePipVersion(releases map[string][]PipReleaseFileInfo) string {
	scheme := versioning.For(model.Python)
	var latest *semver.Version
	var latestStr string

	for vStr, files := range releases {
		// A release with no files or only yanked files is unusable
		usable := false
		for _, f := range files {
			if !f.Yanked {
				usable = true
				break
			}
		}
		if !usable {
			logger.Debugf("Pip: Skipping yanked/empty release %s", vStr)
			continue
		}

		v, err := scheme.Parse(vStr)
		if err != nil {
			logger.Debugf("Pip: Could not parse version '%s': %v", vStr, err)
			continue
		}
		if v.Prerelease() != "" {
			continue
		}
		if latest == nil {
			latest, latestStr = v, vStr
			continue
		}
		if c := versioning.Compare(v, latest); c > 0 || (c == 0 && vStr > latestStr) {
			latest = v
			latestStr = vStr
		}
	}
	return latestStr
}
