// Package versioning encapsulates per-ecosystem version ordering and
// constraint interpretation.
package versioning

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sambabib/depdoctor/pkg/model"
)

// ErrNotComparable is returned for constraints that are not version
// requirements at all (git URLs, local paths, unresolved properties...).
var ErrNotComparable = errors.New("constraint is not a version requirement")

// Scheme interprets versions and constraints for one ecosystem.
type Scheme interface {
	// Parse converts a registry or manifest version into a comparable version.
	Parse(v string) (*semver.Version, error)
	// Floor returns the lowest version the constraint admits. bounded is false
	// for wildcards and constraints with no lower bound.
	Floor(constraint string) (floor *semver.Version, bounded bool, err error)
	// Allows reports whether v satisfies the constraint.
	Allows(constraint string, v *semver.Version) (bool, error)
}

var schemes = map[model.Ecosystem]Scheme{
	model.Node:   semverScheme{},
	model.Go:     semverScheme{},
	model.Java:   semverScheme{},
	model.DotNet: semverScheme{bareIsMinimum: true},
	model.Python: pep440Scheme{},
}

// For returns the scheme for an ecosystem. Unknown ecosystems get plain semver.
func For(eco model.Ecosystem) Scheme {
	if s, ok := schemes[eco]; ok {
		return s
	}
	return semverScheme{}
}

// extraPrefix marks the build metadata identifier that carries release
// segments past major.minor.patch, e.g. 4.0.0.1 -> 4.0.0+seg-1.
const extraPrefix = "seg-"

// extraTag encodes release segments past the third. Trailing zeros are
// dropped so that 1.2.3.0 and 1.2.3 compare equal.
func extraTag(segments []string) string {
	end := len(segments)
	for end > 0 {
		n, err := strconv.Atoi(segments[end-1])
		if err == nil && n != 0 {
			break
		}
		end--
	}
	if end == 0 {
		return ""
	}
	nums := make([]string, end)
	for i, s := range segments[:end] {
		n, _ := strconv.Atoi(s)
		nums[i] = strconv.Itoa(n)
	}
	return extraPrefix + strings.Join(nums, "-")
}

// tieBreakers reads the extra release segments and the post release number
// (-1 when absent) from v's build metadata.
func tieBreakers(v *semver.Version) (extra []int, post int) {
	post = -1
	ids := strings.Split(v.Metadata(), ".")
	if strings.HasPrefix(ids[0], extraPrefix) {
		for _, s := range strings.Split(strings.TrimPrefix(ids[0], extraPrefix), "-") {
			n, _ := strconv.Atoi(s)
			extra = append(extra, n)
		}
		ids = ids[1:]
	}
	if len(ids) > 0 && strings.HasPrefix(ids[0], "post") {
		if n, err := strconv.Atoi(strings.TrimPrefix(ids[0], "post")); err == nil {
			post = n
		}
	}
	return extra, post
}

// Compare orders two versions like semver.Version.Compare, then breaks ties
// on release segments past the third and on post release numbers.
func Compare(a, b *semver.Version) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	ea, pa := tieBreakers(a)
	eb, pb := tieBreakers(b)
	for i := 0; i < len(ea) || i < len(eb); i++ {
		var x, y int
		if i < len(ea) {
			x = ea[i]
		}
		if i < len(eb) {
			y = eb[i]
		}
		if x != y {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(pa, pb)
}

// Display renders v with its extra release segments restored, e.g.
// 4.0.0+seg-1 prints as 4.0.0.1. Other metadata is left out.
func Display(v *semver.Version) string {
	extra, _ := tieBreakers(v)
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	for _, n := range extra {
		fmt.Fprintf(&b, ".%d", n)
	}
	if pre := v.Prerelease(); pre != "" {
		b.WriteString("-" + pre)
	}
	return b.String()
}

// UpdateType grades the gap between current and latest as "major", "minor"
// or "patch". It returns "" when latest is not newer.
func UpdateType(current, latest *semver.Version) string {
	if current == nil || latest == nil || Compare(latest, current) <= 0 {
		return ""
	}
	switch {
	case latest.Major() > current.Major():
		return "major"
	case latest.Minor() > current.Minor():
		return "minor"
	default:
		return "patch"
	}
}

// IsWildcard reports whether a constraint places no requirement on the version.
func IsWildcard(constraint string) bool {
	switch strings.ToLower(strings.TrimSpace(constraint)) {
	case "", "*", "x", "latest", "any", "next", "+":
		return true
	}
	return false
}

var spaceAfterOperator = regexp.MustCompile(`([<>=~^!]+)\s+`)

// splitClauses breaks an AND-ed constraint into its clauses, accepting both
// comma and whitespace separators.
func splitClauses(c string) []string {
	c = spaceAfterOperator.ReplaceAllString(c, "$1")
	return strings.Fields(strings.ReplaceAll(c, ",", " "))
}

// splitOperator separates a leading operator from its version using the
// given operator table, longest first.
func splitOperator(clause string, ops []string) (string, string) {
	for _, op := range ops {
		if strings.HasPrefix(clause, op) {
			return op, strings.TrimSpace(clause[len(op):])
		}
	}
	return "", clause
}

// lowerBound reports whether an operator constrains versions from below.
func lowerBound(op string) bool {
	switch op {
	case "<", "<=", "!=":
		return false
	}
	return true
}

var wildcardSegment = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)*)(?:\.[x*])+$`)

// fillWildcard turns 1.2.x / 1.* into their lowest concrete version.
func fillWildcard(v string) string {
	if m := wildcardSegment.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// maxVersion keeps the larger of two possibly nil versions.
func maxVersion(a, b *semver.Version) *semver.Version {
	if a == nil || (b != nil && Compare(b, a) > 0) {
		return b
	}
	return a
}
