package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// pep440Scheme orders Python versions. PEP 440 versions are rewritten into
// semver before comparison:
//   - pre-releases map to alpha/beta/rc identifiers
//   - dev releases sort below every pre-release of the same release
//   - release segments beyond the third and post releases become build
//     metadata that Compare uses to break ties
//   - local labels are kept as metadata and ignored when ordering
//   - epochs are dropped
type pep440Scheme struct{}

var pep440Pattern = regexp.MustCompile(`(?i)^v?(?:\d+!)?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?` +
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d*))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

var pep440Ops = []string{"===", "==", "~=", ">=", "<=", "!=", ">", "<", "^", "~", "="}

// toSemver rewrites a PEP 440 version string into a semver string.
func toSemver(v string) (string, error) {
	m := pep440Pattern.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", fmt.Errorf("invalid PEP 440 version %q", v)
	}

	release := strings.Split(m[1], ".")
	for len(release) < 3 {
		release = append(release, "0")
	}
	for i := range release {
		n, err := strconv.Atoi(release[i])
		if err != nil {
			return "", fmt.Errorf("invalid PEP 440 version %q: %w", v, err)
		}
		release[i] = strconv.Itoa(n)
	}
	out := strings.Join(release[:3], ".")

	var pre []string
	if m[2] != "" {
		pre = append(pre, preTag(m[2]), number(m[3]))
	}
	if m[7] != "" {
		if len(pre) == 0 {
			// 0 is numeric and therefore sorts below alpha/beta/rc
			pre = append(pre, "0")
		}
		pre = append(pre, "dev", number(m[8]))
	}
	if len(pre) > 0 {
		out += "-" + strings.Join(pre, ".")
	}

	var build []string
	if tag := extraTag(release[3:]); tag != "" {
		build = append(build, tag)
	}
	if m[4] != "" || m[5] != "" {
		build = append(build, "post"+number(m[4]+m[6]))
	}
	if m[9] != "" {
		build = append(build, strings.NewReplacer("_", ".", "-", ".").Replace(m[9]))
	}
	if len(build) > 0 {
		out += "+" + strings.Join(build, ".")
	}
	return out, nil
}

func preTag(tag string) string {
	switch strings.ToLower(tag) {
	case "a", "alpha":
		return "alpha"
	case "b", "beta":
		return "beta"
	default:
		return "rc"
	}
}

func number(s string) string {
	if s == "" {
		return "0"
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "0"
	}
	return strconv.Itoa(n)
}

func (pep440Scheme) Parse(v string) (*semver.Version, error) {
	s, err := toSemver(v)
	if err != nil {
		return nil, err
	}
	return semver.NewVersion(s)
}

func (p pep440Scheme) Floor(constraint string) (*semver.Version, bool, error) {
	c := strings.TrimSpace(constraint)
	if IsWildcard(c) {
		return nil, false, nil
	}
	if !looksLikeRequirement(c) {
		return nil, false, fmt.Errorf("%w: %q", ErrNotComparable, c)
	}

	var floor *semver.Version
	for _, clause := range splitClauses(c) {
		op, ver := splitOperator(clause, pep440Ops)
		if !lowerBound(op) || IsWildcard(ver) {
			continue
		}
		v, err := p.Parse(fillWildcard(ver))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %q", ErrNotComparable, clause)
		}
		floor = maxVersion(floor, v)
	}
	return floor, floor != nil, nil
}

func (p pep440Scheme) Allows(constraint string, v *semver.Version) (bool, error) {
	c := strings.TrimSpace(constraint)
	if IsWildcard(c) {
		return true, nil
	}
	if !looksLikeRequirement(c) {
		return false, fmt.Errorf("%w: %q", ErrNotComparable, c)
	}

	for _, clause := range splitClauses(c) {
		ok, err := p.allowsClause(clause, v)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// allowsClause checks plain comparisons with Compare so that release
// segments past the third and post releases count. Compatible release,
// Poetry and wildcard clauses go through Masterminds.
func (p pep440Scheme) allowsClause(clause string, v *semver.Version) (bool, error) {
	op, ver := splitOperator(clause, pep440Ops)
	if op != "~=" && op != "^" && op != "~" && !wildcardSegment.MatchString(ver) {
		bound, err := p.Parse(ver)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrNotComparable, clause)
		}
		// Pre-releases only match clauses that name one.
		if v.Prerelease() != "" && bound.Prerelease() == "" {
			return false, nil
		}
		c := Compare(v, bound)
		switch op {
		case ">=":
			return c >= 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		case "<":
			return c < 0, nil
		case "!=":
			return c != 0, nil
		default:
			return c == 0, nil
		}
	}

	expr, err := p.translate(clause)
	if err != nil {
		return false, err
	}
	cons, err := semver.NewConstraint(expr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotComparable, err)
	}
	return cons.Check(v), nil
}

// translate rewrites one PEP 440 (or Poetry) clause into Masterminds syntax.
func (p pep440Scheme) translate(clause string) (string, error) {
	op, ver := splitOperator(clause, pep440Ops)
	if wildcardSegment.MatchString(ver) && (op == "==" || op == "=" || op == "") {
		return ver, nil
	}
	if wildcardSegment.MatchString(ver) && op == "!=" {
		// Masterminds has no negated wildcard; keep the bound open.
		return "*", nil
	}

	sv, err := toSemver(ver)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotComparable, clause)
	}

	switch op {
	case "===", "==", "=", "":
		return "=" + sv, nil
	case "~=":
		// Compatible release: ~=1.4.2 means >=1.4.2, ==1.4.*
		release := strings.Split(strings.SplitN(strings.SplitN(ver, "+", 2)[0], "-", 2)[0], ".")
		if len(release) < 2 {
			return "", fmt.Errorf("%w: %q needs at least two release segments", ErrNotComparable, clause)
		}
		upper := make([]string, len(release)-1)
		copy(upper, release[:len(release)-1])
		last, err := strconv.Atoi(upper[len(upper)-1])
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrNotComparable, clause)
		}
		upper[len(upper)-1] = strconv.Itoa(last + 1)
		hi, err := toSemver(strings.Join(upper, "."))
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrNotComparable, clause)
		}
		return fmt.Sprintf(">=%s, <%s", sv, hi), nil
	default:
		return op + sv, nil
	}
}
