package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/depdoctor/pkg/analyzer"
	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitInvalid, exitCode(fmt.Errorf("wrap: %w", analyzer.ErrInvalidInput)))
	assert.Equal(t, ExitInternal, exitCode(analyzer.ErrInternal))
	assert.Equal(t, ExitInternal, exitCode(errors.New("unexpected")))
	assert.Equal(t, ExitFailOn, exitCode(errFailOn))
}

func TestParseFailOn(t *testing.T) {
	fail, err := parseFailOn([]string{"Outdated", " deprecated "})
	require.NoError(t, err)
	assert.True(t, fail[model.Outdated])
	assert.True(t, fail[model.Deprecated])
	assert.False(t, fail[model.Unresolved])

	_, err = parseFailOn([]string{"stale"})
	assert.Error(t, err)
}

func TestAnalyzeCommand_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/react":
			fmt.Fprint(w, `{"dist-tags":{"latest":"18.2.0"}}`)
		case "/lodash":
			fmt.Fprint(w, `{"dist-tags":{"latest":"4.17.21"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies":{"react":"^17.0.0","lodash":"^4.17.21"}}`), 0644))
	t.Setenv("DEPDOCTOR_NPM_REGISTRY", srv.URL)
	t.Setenv("DEPDOCTOR_RATE_LIMIT", "0")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"analyze", "--path", dir, "--format", "json", "--fail-on", "outdated"})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, errFailOn)

	var rep model.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	require.Len(t, rep.Findings, 2)
	assert.Equal(t, "lodash", rep.Findings[0].Name)
	assert.Equal(t, model.UpToDate, rep.Findings[0].Classification)
	assert.Equal(t, "react", rep.Findings[1].Name)
	assert.Equal(t, model.Outdated, rep.Findings[1].Classification)
	assert.Equal(t, 50, rep.Summary.HealthScore)
}

func TestAnalyzeCommand_LogLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"dist-tags":{"latest":"4.17.21"}}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies":{"lodash":"^4.17.21"}}`), 0644))
	t.Setenv("DEPDOCTOR_NPM_REGISTRY", srv.URL)
	t.Setenv("DEPDOCTOR_RATE_LIMIT", "0")

	var logs bytes.Buffer
	logger.SetOutput(&logs)
	rootCmd.SetOut(io.Discard)
	t.Cleanup(func() {
		quiet, verbose = false, false
		logger.SetQuiet(false)
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
		rootCmd.SetOut(nil)
	})

	rootCmd.SetArgs([]string{"analyze", "--path", dir, "--quiet", "--fail-on", ""})
	require.NoError(t, rootCmd.Execute())
	assert.NotContains(t, logs.String(), "Found 1 manifest")

	logs.Reset()
	rootCmd.SetArgs([]string{"analyze", "--path", dir, "--quiet=false", "--verbose", "--fail-on", ""})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, logs.String(), "Found 1 manifest")
	assert.Contains(t, logs.String(), "Registry cache holds 1 entries")
}

func TestAnalyzeCommand_InvalidPath(t *testing.T) {
	rootCmd.SetArgs([]string{"analyze", "--path", filepath.Join(t.TempDir(), "nope"), "--fail-on", ""})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, exitCode(err))
}
