package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/depdoctor/pkg/model"
)

// mockRegistry serves canned bodies keyed by escaped request path.
func mockRegistry(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.EscapedPath()]
		if !ok {
			t.Logf("Mock registry received request for unexpected path: %s", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient() *Client {
	return NewClient(WithRateLimit(0))
}

func TestNpmSource_Latest(t *testing.T) {
	srv := mockRegistry(t, map[string]string{
		"/react":         `{"dist-tags":{"latest":"18.2.0"},"versions":{"18.2.0":{}}}`,
		"/request":       `{"dist-tags":{"latest":"2.88.2"},"versions":{"2.88.2":{"deprecated":"request has been deprecated"}}}`,
		"/@babel%2Fcore": `{"dist-tags":{"latest":"7.24.0"}}`,
		"/broken":        `{"dist-tags":{}}`,
	})
	src := NewNpmSource(testClient(), srv.URL+"/")
	ctx := context.Background()

	rel, err := src.Latest(ctx, "react")
	require.NoError(t, err)
	assert.Equal(t, "18.2.0", rel.Version)
	assert.False(t, rel.Deprecated)

	rel, err = src.Latest(ctx, "request")
	require.NoError(t, err)
	assert.True(t, rel.Deprecated)
	assert.Equal(t, "request has been deprecated", rel.DeprecationMessage)

	rel, err = src.Latest(ctx, "@babel/core")
	require.NoError(t, err)
	assert.Equal(t, "7.24.0", rel.Version)

	_, err = src.Latest(ctx, "broken")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = src.Latest(ctx, "left-pad-nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPyPISource_Latest(t *testing.T) {
	srv := mockRegistry(t, map[string]string{
		"/requests/json": `{
			"info": {"name": "requests", "version": "3.0.0rc1"},
			"releases": {
				"2.30.0": [{"filename": "a.whl"}],
				"2.31.0": [{"filename": "b.whl"}],
				"2.32.0": [{"filename": "c.whl", "yanked": true}],
				"3.0.0rc1": [{"filename": "d.whl"}]
			}
		}`,
		"/oldlib/json": `{
			"info": {"name": "oldlib", "version": "1.0", "classifiers": ["Development Status :: 7 - Inactive"]},
			"releases": {"1.0": [{"filename": "x.tar.gz"}]}
		}`,
		"/onlypre/json": `{"info": {"version": "0.1b1"}, "releases": {"0.1b1": [{"filename": "y.whl"}]}}`,
		"/garbage/json": `not json`,
	})
	src := NewPyPISource(testClient(), srv.URL)
	ctx := context.Background()

	rel, err := src.Latest(ctx, "requests")
	require.NoError(t, err)
	assert.Equal(t, "2.31.0", rel.Version, "yanked and pre-releases are skipped")

	rel, err = src.Latest(ctx, "oldlib")
	require.NoError(t, err)
	assert.True(t, rel.Deprecated)

	rel, err = src.Latest(ctx, "onlypre")
	require.NoError(t, err)
	assert.Equal(t, "0.1b1", rel.Version)

	_, err = src.Latest(ctx, "garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMavenSource_Latest(t *testing.T) {
	srv := mockRegistry(t, map[string]string{
		"/org/springframework/spring-core/maven-metadata.xml": `<metadata>
  <groupId>org.springframework</groupId>
  <artifactId>spring-core</artifactId>
  <versioning>
    <release>6.2.0-RC1</release>
    <versions>
      <version>5.3.30</version>
      <version>6.1.5</version>
      <version>6.2.0-SNAPSHOT</version>
      <version>6.2.0-RC1</version>
    </versions>
  </versioning>
</metadata>`,
	})
	src := NewMavenSource(testClient(), srv.URL)
	ctx := context.Background()

	rel, err := src.Latest(ctx, "org.springframework:spring-core")
	require.NoError(t, err)
	assert.Equal(t, "6.1.5", rel.Version)

	_, err = src.Latest(ctx, "no-colon")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Latest(ctx, "com.example:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNuGetSource_Latest(t *testing.T) {
	var srvURL string
	var indexHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/index.json":
			indexHits.Add(1)
			fmt.Fprintf(w, `{"resources":[{"@id":"%s/reg","@type":"RegistrationsBaseUrl/3.6.0"}]}`, srvURL)
		case "/reg/newtonsoft.json/index.json":
			fmt.Fprint(w, `{"items":[{"items":[
				{"catalogEntry":{"id":"Newtonsoft.Json","version":"12.0.3"}},
				{"catalogEntry":{"id":"Newtonsoft.Json","version":"13.0.3"}},
				{"catalogEntry":{"id":"Newtonsoft.Json","version":"14.0.0-beta1"}},
				{"catalogEntry":{"id":"Newtonsoft.Json","version":"13.0.4","listed":false}}
			]}]}`)
		case "/reg/old.package/index.json":
			fmt.Fprintf(w, `{"items":[{"@id":"%s/reg/old.package/page1.json"}]}`, srvURL)
		case "/reg/old.package/page1.json":
			fmt.Fprint(w, `{"items":[
				{"catalogEntry":{"version":"2.0.0","deprecation":{"reasons":["Legacy"],"alternatePackage":{"id":"New.Package"}}}}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	src := NewNuGetSource(testClient(), srv.URL+"/v3/index.json")
	ctx := context.Background()

	rel, err := src.Latest(ctx, "Newtonsoft.Json")
	require.NoError(t, err)
	assert.Equal(t, "13.0.3", rel.Version)
	assert.False(t, rel.Deprecated)

	rel, err = src.Latest(ctx, "Old.Package")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", rel.Version)
	assert.True(t, rel.Deprecated)
	assert.Equal(t, "Legacy; use New.Package instead", rel.DeprecationMessage)

	_, err = src.Latest(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int32(1), indexHits.Load(), "service index is fetched once")
}

func TestNuGetSource_ServiceIndexFailureIsRetried(t *testing.T) {
	var srvURL string
	var indexHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/index.json":
			if indexHits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprintf(w, `{"resources":[{"@id":"%s/reg","@type":"RegistrationsBaseUrl"}]}`, srvURL)
		case "/reg/serilog/index.json":
			fmt.Fprint(w, `{"items":[{"items":[{"catalogEntry":{"version":"3.1.1"}}]}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	src := NewNuGetSource(testClient(), srv.URL+"/v3/index.json")
	ctx := context.Background()

	_, err := src.Latest(ctx, "Serilog")
	require.Error(t, err)

	rel, err := src.Latest(ctx, "Serilog")
	require.NoError(t, err)
	assert.Equal(t, "3.1.1", rel.Version)
	assert.Equal(t, int32(2), indexHits.Load())

	_, err = src.Latest(ctx, "Serilog")
	require.NoError(t, err)
	assert.Equal(t, int32(2), indexHits.Load(), "a successful lookup is remembered")
}

func TestLatestNuGetEntry_FourPartVersions(t *testing.T) {
	leaves := []NuGetRegistrationLeaf{
		{CatalogEntry: NuGetCatalogEntry{Version: "4.0.0.9"}},
		{CatalogEntry: NuGetCatalogEntry{Version: "4.0.0.10"}},
		{CatalogEntry: NuGetCatalogEntry{Version: "4.0.0.1"}},
	}
	entry := latestNuGetEntry(leaves)
	require.NotNil(t, entry)
	assert.Equal(t, "4.0.0.10", entry.Version)
}

func TestLatestStableMavenVersion_FourPartVersions(t *testing.T) {
	assert.Equal(t, "1.2.3.4", latestStableMavenVersion([]string{"1.2.3.1", "1.2.3.4", "1.2.3", "1.2.3.2"}))
}

func TestGoProxySource_Latest(t *testing.T) {
	srv := mockRegistry(t, map[string]string{
		"/github.com/!burnt!sushi/toml/@latest":     `{"Version":"v1.4.0","Time":"2024-06-01T00:00:00Z"}`,
		"/github.com/!burnt!sushi/toml/@v/v1.4.0.mod": "module github.com/BurntSushi/toml\n\ngo 1.18\n",
		"/github.com/pkg/errors/@latest":            `{"Version":"v0.9.1"}`,
		"/github.com/pkg/errors/@v/v0.9.1.mod":      "// Deprecated: use the standard library errors package.\nmodule github.com/pkg/errors\n",
	})
	src := NewGoProxySource(testClient(), srv.URL)
	ctx := context.Background()

	rel, err := src.Latest(ctx, "github.com/BurntSushi/toml")
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", rel.Version)
	assert.False(t, rel.Deprecated)

	rel, err = src.Latest(ctx, "github.com/pkg/errors")
	require.NoError(t, err)
	assert.True(t, rel.Deprecated)
	assert.Equal(t, "use the standard library errors package.", rel.DeprecationMessage)

	_, err = src.Latest(ctx, "example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouter_UnknownEcosystem(t *testing.T) {
	r := NewRouter(map[model.Ecosystem]Source{})
	_, err := r.Latest(context.Background(), model.Node, "react")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "node"))

	_, err = r.Latest(context.Background(), model.Ecosystem("cargo"), "serde")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "unsupported ecosystem")
}
