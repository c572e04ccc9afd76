package registry

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/versioning"
)

const defaultMavenRegistryURL = "https://repo.maven.apache.org/maven2"

// Qualifiers that mark a Maven version as not a stable release.
var mavenUnstable = regexp.MustCompile(`(?i)[-.](snapshot|alpha|beta|rc|cr|m\d+|milestone|preview|ea)`)

// MavenSource resolves artifacts against a Maven repository layout.
type MavenSource struct {
	RegistryURL string
	client      *Client
}

// NewMavenSource creates a new MavenSource. An empty registryURL uses Maven Central.
func NewMavenSource(client *Client, registryURL string) *MavenSource {
	if registryURL == "" {
		registryURL = defaultMavenRegistryURL
	}
	return &MavenSource{RegistryURL: strings.TrimSuffix(registryURL, "/"), client: client}
}

// MavenMetadata represents the Maven metadata XML structure
type MavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest   string `xml:"latest"`
		Release  string `xml:"release"`
		Versions struct {
			Version []string `xml:"version"`
		} `xml:"versions"`
		LastUpdated string `xml:"lastUpdated"`
	} `xml:"versioning"`
}

// Latest expects name in groupId:artifactId form.
func (s *MavenSource) Latest(ctx context.Context, name string) (*Release, error) {
	groupID, artifactID, ok := strings.Cut(name, ":")
	if !ok || groupID == "" || artifactID == "" {
		return nil, fmt.Errorf("%w: %q is not a groupId:artifactId coordinate", ErrNotFound, name)
	}

	groupPath := strings.ReplaceAll(groupID, ".", "/")
	metadataURL := fmt.Sprintf("%s/%s/%s/maven-metadata.xml", s.RegistryURL, groupPath, artifactID)
	body, err := s.client.get(ctx, metadataURL, "application/xml")
	if err != nil {
		return nil, err
	}

	var metadata MavenMetadata
	if err := xml.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("%w: maven %s: %v", ErrMalformed, name, err)
	}

	latest := latestStableMavenVersion(metadata.Versioning.Versions.Version)
	if latest == "" {
		latest = strings.TrimSpace(metadata.Versioning.Release)
	}
	if latest == "" {
		return nil, fmt.Errorf("%w: maven %s lists no stable version", ErrMalformed, name)
	}
	// Maven repositories carry no deprecation marker
	return &Release{Version: latest}, nil
}

// latestStableMavenVersion returns the latest stable version from a list of versions
func latestStableMavenVersion(versions []string) string {
	scheme := versioning.For(model.Java)
	var latest *semver.Version
	var latestStr string

	for _, versionStr := range versions {
		versionStr = strings.TrimSpace(versionStr)
		if mavenUnstable.MatchString(versionStr) {
			logger.Debugf("Maven: Skipping non-stable version: %s", versionStr)
			continue
		}
		version, err := scheme.Parse(versionStr)
		if err != nil {
			logger.Debugf("Maven: Skipping unparseable version: %s (%v)", versionStr, err)
			continue
		}
		if latest == nil || versioning.Compare(version, latest) > 0 {
			latest = version
			latestStr = versionStr
		}
	}
	return latestStr
}
