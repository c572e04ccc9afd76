package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/depdoctor/pkg/model"
)

// writeFile is a helper to create a file (and its parents) under dir.
func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), Options{})
	assert.ErrorIs(t, err, ErrInvalidRoot)

	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "x")
	_, err = Scan(filepath.Join(dir, "file.txt"), Options{})
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestScan_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# nothing here")

	res, err := Scan(dir, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Manifests)
	assert.Empty(t, res.Dependencies)
	assert.Empty(t, res.Warnings)
}

func TestScan_MixedRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "flask==1.0.0\nrequests>=2.0\n")
	writeFile(t, dir, "web/package.json", `{"dependencies":{"react":"^17.0.0"},"devDependencies":{"React":"^17.0.0"}}`)
	writeFile(t, dir, "svc/go.mod", "module example.com/svc\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0\n")
	// Vendored copies must not be scanned
	writeFile(t, dir, "web/node_modules/left-pad/package.json", `{"dependencies":{"x":"1.0.0"}}`)
	writeFile(t, dir, ".git/package.json", `{"dependencies":{"y":"1.0.0"}}`)
	writeFile(t, dir, "svc/vendor/modules/go.mod", "module vendored\n")

	res, err := Scan(dir, Options{})
	require.NoError(t, err)

	var manifests []string
	for _, m := range res.Manifests {
		manifests = append(manifests, m.RelPath)
	}
	assert.Equal(t, []string{"requirements.txt", "svc/go.mod", "web/package.json"}, manifests)
	assert.Empty(t, res.Warnings)

	require.Len(t, res.Dependencies, 5)
	assert.Equal(t, model.DeclaredDependency{
		Ecosystem: model.Python, Name: "flask", RawName: "flask", Constraint: "==1.0.0",
		Scope: model.ScopeRuntime, Manifest: "requirements.txt",
	}, res.Dependencies[0])
	assert.Equal(t, model.Go, res.Dependencies[2].Ecosystem)
	// Both spellings normalize to the same key
	assert.Equal(t, res.Dependencies[3].Key(), res.Dependencies[4].Key())
	assert.Equal(t, "React", res.Dependencies[4].RawName)
}

func TestScan_MalformedManifestIsWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "flask==1.0.0\nrequests>=2.0\n")
	writeFile(t, dir, "frontend/package.json", "{ not json")
	writeFile(t, dir, "api/App.csproj", `<Project><ItemGroup><PackageReference Include="Serilog" Version="2.10.0" /></ItemGroup></Project>`)

	res, err := Scan(dir, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Manifests, 3)
	assert.Len(t, res.Dependencies, 3)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "frontend/package.json", res.Warnings[0].Path)
}

func TestScan_ExcludeAndIgnore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "flask==1.0.0\nPyYAML==5.0\n")
	writeFile(t, dir, "examples/demo/requirements.txt", "django==2.0\n")
	writeFile(t, dir, "docs/requirements-docs.txt", "mkdocs==1.0\n")

	res, err := Scan(dir, Options{
		Exclude: []string{"examples", "docs/*"},
		Ignore: func(eco model.Ecosystem, name string) bool {
			return eco == model.Python && name == "pyyaml"
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Manifests, 1)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "flask", res.Dependencies[0].Name)
}

func TestScan_IgnoreIsPerEcosystem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "lodash==1.0\n")
	writeFile(t, dir, "package.json", `{"dependencies":{"lodash":"^4.17.0"}}`)

	res, err := Scan(dir, Options{
		Ignore: func(eco model.Ecosystem, name string) bool {
			return eco == model.Node && name == "lodash"
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, model.Python, res.Dependencies[0].Ecosystem)
}

func TestScan_SymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "project/requirements.txt", "flask==1.0.0\n")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(filepath.Join(dir, "project"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	res, err := Scan(link, Options{})
	require.NoError(t, err)
	require.Len(t, res.Manifests, 1)
	assert.Equal(t, "requirements.txt", res.Manifests[0].RelPath)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "flask", res.Dependencies[0].Name)
}
