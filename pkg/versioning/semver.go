package versioning

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// semverScheme serves npm, NuGet, Maven and Go modules. NuGet reads a bare
// version as a minimum, the others as a pin.
type semverScheme struct {
	bareIsMinimum bool
}

var semverOps = []string{">=", "<=", "~>", "==", "!=", ">", "<", "=", "^", "~"}

// numericPrefix rescues versions such as 4.3.2.RELEASE or 4.0.0.1 that
// semver rejects. Numeric segments past the third are captured separately.
var numericPrefix = regexp.MustCompile(`^v?(\d+(?:\.\d+){0,2})((?:\.\d+)*)`)

func (semverScheme) Parse(v string) (*semver.Version, error) {
	v = strings.TrimSpace(v)
	sv, err := semver.NewVersion(v)
	if err == nil {
		return sv, nil
	}
	m := numericPrefix.FindStringSubmatch(v)
	if m == nil {
		return nil, err
	}
	base := m[1]
	if tag := extraTag(strings.Split(strings.TrimPrefix(m[2], "."), ".")); tag != "" {
		base += "+" + tag
	}
	return semver.NewVersion(base)
}

func (s semverScheme) Floor(constraint string) (*semver.Version, bool, error) {
	c := strings.TrimSpace(constraint)
	if IsWildcard(c) {
		return nil, false, nil
	}
	if !looksLikeRequirement(c) {
		return nil, false, fmt.Errorf("%w: %q", ErrNotComparable, c)
	}
	if strings.HasPrefix(c, "[") || strings.HasPrefix(c, "(") {
		return s.intervalFloor(c)
	}

	// The floor of an OR is the lowest floor of its alternatives.
	var floor *semver.Version
	for _, alt := range strings.Split(c, "||") {
		f, bounded, err := s.andFloor(alt)
		if err != nil {
			return nil, false, err
		}
		if !bounded {
			return nil, false, nil
		}
		if floor == nil || Compare(f, floor) < 0 {
			floor = f
		}
	}
	return floor, floor != nil, nil
}

// andFloor returns the highest lower bound among AND-ed clauses.
func (s semverScheme) andFloor(c string) (*semver.Version, bool, error) {
	c = strings.TrimSpace(c)
	if lo, _, ok := strings.Cut(c, " - "); ok {
		c = ">=" + strings.TrimSpace(lo)
	}

	var floor *semver.Version
	for _, clause := range splitClauses(c) {
		op, ver := splitOperator(clause, semverOps)
		if !lowerBound(op) || IsWildcard(ver) {
			continue
		}
		v, err := s.Parse(fillWildcard(ver))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %q", ErrNotComparable, clause)
		}
		floor = maxVersion(floor, v)
	}
	return floor, floor != nil, nil
}

// intervalFloor handles NuGet and Maven interval notation: [1.0,2.0), (,3.0], [1.2].
func (s semverScheme) intervalFloor(c string) (*semver.Version, bool, error) {
	if !strings.HasSuffix(c, "]") && !strings.HasSuffix(c, ")") {
		return nil, false, fmt.Errorf("%w: unterminated interval %q", ErrNotComparable, c)
	}
	lo, _, _ := strings.Cut(c[1:len(c)-1], ",")
	lo = strings.TrimSpace(lo)
	if lo == "" {
		return nil, false, nil
	}
	v, err := s.Parse(lo)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q", ErrNotComparable, c)
	}
	return v, true, nil
}

func (s semverScheme) Allows(constraint string, v *semver.Version) (bool, error) {
	expr, err := s.toConstraint(strings.TrimSpace(constraint))
	if err != nil {
		return false, err
	}
	cons, err := semver.NewConstraint(expr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotComparable, err)
	}
	return cons.Check(v), nil
}

// toConstraint rewrites a manifest constraint into Masterminds syntax.
func (s semverScheme) toConstraint(c string) (string, error) {
	switch {
	case IsWildcard(c):
		return "*", nil
	case !looksLikeRequirement(c):
		return "", fmt.Errorf("%w: %q", ErrNotComparable, c)
	case strings.HasPrefix(c, "[") || strings.HasPrefix(c, "("):
		return intervalConstraint(c)
	}
	c = strings.ReplaceAll(c, "~>", "~")
	if s.bareIsMinimum {
		if op, _ := splitOperator(c, semverOps); op == "" && len(splitClauses(c)) == 1 {
			return ">=" + c, nil
		}
	}
	return c, nil
}

func intervalConstraint(c string) (string, error) {
	if len(c) < 2 || (!strings.HasSuffix(c, "]") && !strings.HasSuffix(c, ")")) {
		return "", fmt.Errorf("%w: unterminated interval %q", ErrNotComparable, c)
	}
	inclusiveLo, inclusiveHi := c[0] == '[', c[len(c)-1] == ']'
	lo, hi, found := strings.Cut(c[1:len(c)-1], ",")
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if !found {
		return "=" + lo, nil
	}

	var parts []string
	if lo != "" {
		if inclusiveLo {
			parts = append(parts, ">="+lo)
		} else {
			parts = append(parts, ">"+lo)
		}
	}
	if hi != "" {
		if inclusiveHi {
			parts = append(parts, "<="+hi)
		} else {
			parts = append(parts, "<"+hi)
		}
	}
	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, ", "), nil
}

// looksLikeRequirement filters out git URLs, local paths, aliases and
// unresolved build properties.
func looksLikeRequirement(c string) bool {
	return !strings.ContainsAny(c, ":/\\@$")
}
