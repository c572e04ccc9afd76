package scanner

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
)

var (
	// name, optional [extras], then whatever specifier follows.
	// Markers (; python_version < '3.7') are cut off before matching.
	reqPattern = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^\]]*\])?\s*(.*)$`)
	// One or more comma separated PEP 440 clauses, or a Poetry style caret/tilde.
	specPattern = regexp.MustCompile(`^(?:(?:===|==|~=|!=|>=|<=|>|<|\^|~)\s*[A-Za-z0-9.*+!_-]+)(?:\s*,\s*(?:===|==|~=|!=|>=|<=|>|<)\s*[A-Za-z0-9.*+!_-]+)*$`)
	// Per-requirement options such as --hash=sha256:... or --global-option.
	lineOption = regexp.MustCompile(`\s-{1,2}[A-Za-z]`)
)

// ParseRequirements reads a pip requirements file. Options (-r, -c,
// --index-url), editable installs and VCS/URL requirements are skipped
// because they do not name a registry release.
func ParseRequirements(content []byte) ([]Requirement, error) {
	var reqs []Requirement
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNum := 0
	var pending strings.Builder

	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()
		if strings.HasSuffix(strings.TrimSpace(raw), `\`) {
			pending.WriteString(strings.TrimSuffix(strings.TrimSpace(raw), `\`))
			pending.WriteByte(' ')
			continue
		}
		pending.WriteString(raw)
		line := pending.String()
		pending.Reset()

		req, ok, err := parseRequirementLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if ok {
			reqs = append(reqs, req)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading requirements: %w", err)
	}
	return reqs, nil
}

// parseRequirementLine parses a single PEP 508 requirement. ok is false for
// lines that carry no registry requirement.
func parseRequirementLine(line string) (Requirement, bool, error) {
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Requirement{}, false, nil
	}
	if strings.HasPrefix(line, "-") {
		logger.Debugf("Pip: skipping option line '%s'", line)
		return Requirement{}, false, nil
	}
	for _, prefix := range []string{"git+", "hg+", "svn+", "bzr+", "http://", "https://", "file:", "./", "../", "/"} {
		if strings.HasPrefix(line, prefix) {
			logger.Debugf("Pip: skipping non-registry requirement '%s'", line)
			return Requirement{}, false, nil
		}
	}
	if loc := lineOption.FindStringIndex(line); loc != nil {
		line = strings.TrimSpace(line[:loc[0]])
	}
	if i := strings.Index(line, ";"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	m := reqPattern.FindStringSubmatch(line)
	if m == nil {
		return Requirement{}, false, fmt.Errorf("unsupported requirement format: %s", line)
	}
	name, spec := m[1], strings.TrimSpace(m[3])
	if strings.HasPrefix(spec, "@") {
		// PEP 508 direct reference: name @ https://...
		return Requirement{}, false, nil
	}
	spec = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(spec, "("), ")"))
	if spec != "" && !specPattern.MatchString(spec) {
		return Requirement{}, false, fmt.Errorf("invalid version specifier %q for %s", spec, name)
	}

	return Requirement{
		Name:       name,
		Constraint: strings.Join(strings.Fields(spec), ""),
		Scope:      model.ScopeRuntime,
	}, true, nil
}
