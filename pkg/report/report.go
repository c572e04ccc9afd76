// Package report joins declared dependencies with version facts and
// classifies each one.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/scanner"
	"github.com/sambabib/depdoctor/pkg/versioning"
)

// Severity levels attached to findings.
const (
	SeverityOK      = "ok"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Options tunes report building.
type Options struct {
	// SeverityForUpdate maps major/minor/patch onto a severity level.
	// Nil uses DefaultSeverity.
	SeverityForUpdate func(updateType string) string
}

// DefaultSeverity grades major updates as errors, minor as warnings and
// patches as info.
func DefaultSeverity(updateType string) string {
	switch updateType {
	case "major":
		return SeverityError
	case "minor":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Build produces the report for one scan. It performs no I/O and reads no
// clock; GeneratedAt is left for the caller to stamp.
func Build(scan *scanner.Result, facts map[model.Key]model.PackageVersionFact, opts Options) *model.Report {
	if opts.SeverityForUpdate == nil {
		opts.SeverityForUpdate = DefaultSeverity
	}

	rep := &model.Report{
		Manifests: []string{},
		Warnings:  []model.Warning{},
		Findings:  []model.Finding{},
	}
	if scan == nil {
		rep.Summary = summarize(rep.Findings)
		return rep
	}

	rep.RepositoryPath = scan.Root
	rep.ManifestsScanned = len(scan.Manifests)
	for _, m := range scan.Manifests {
		rep.Manifests = append(rep.Manifests, m.RelPath)
	}
	rep.Warnings = append(rep.Warnings, scan.Warnings...)

	for _, dep := range scan.Dependencies {
		fact, ok := facts[dep.Key()]
		var fp *model.PackageVersionFact
		if ok {
			fp = &fact
		}
		rep.Findings = append(rep.Findings, classify(dep, fp, opts))
	}

	sortFindings(rep.Findings)
	rep.Summary = summarize(rep.Findings)
	return rep
}

// classify applies the first matching rule: deprecated, unresolved,
// unbounded, outdated, up-to-date.
func classify(dep model.DeclaredDependency, fact *model.PackageVersionFact, opts Options) model.Finding {
	f := model.Finding{DeclaredDependency: dep}
	if fact != nil {
		f.LatestVersion = fact.LatestVersion
		f.Deprecated = fact.Deprecated
	}

	switch {
	case fact != nil && fact.Deprecated:
		f.Classification = model.Deprecated
		f.Severity = SeverityError
		f.Reason = "package is deprecated"
		if fact.DeprecationMessage != "" {
			f.Reason += ": " + fact.DeprecationMessage
		}
		return f
	case fact == nil:
		f.Classification = model.Unresolved
		f.Severity = SeverityWarning
		f.Reason = "no version information was obtained"
		return f
	case fact.Failed():
		f.Classification = model.Unresolved
		f.Severity = SeverityWarning
		f.Reason = unresolvedReason(fact)
		return f
	}

	scheme := versioning.For(dep.Ecosystem)
	floor, bounded, err := scheme.Floor(dep.Constraint)
	switch {
	case err != nil:
		return upToDate(f, notComparable(err))
	case !bounded:
		return upToDate(f, "constraint accepts any version")
	}

	latest, err := scheme.Parse(fact.LatestVersion)
	if err != nil {
		return upToDate(f, notComparable(err))
	}
	if allowed, err := scheme.Allows(dep.Constraint, latest); err == nil {
		f.LatestAllowed = &allowed
	}
	if versioning.Compare(floor, latest) >= 0 {
		return upToDate(f, "")
	}

	f.Classification = model.Outdated
	f.UpdateType = versioning.UpdateType(floor, latest)
	f.Severity = opts.SeverityForUpdate(f.UpdateType)
	f.Reason = fmt.Sprintf("%s update available: %s -> %s", f.UpdateType, versioning.Display(floor), fact.LatestVersion)
	if f.LatestAllowed != nil {
		if *f.LatestAllowed {
			f.Reason += " (within declared range)"
		} else {
			f.Reason += " (declared range excludes latest)"
		}
	}
	return f
}

func upToDate(f model.Finding, reason string) model.Finding {
	f.Classification = model.UpToDate
	f.Severity = SeverityOK
	f.Reason = reason
	return f
}

func notComparable(err error) string {
	if errors.Is(err, versioning.ErrNotComparable) {
		return "not comparable: constraint is not a version requirement"
	}
	return "not comparable: " + err.Error()
}

func unresolvedReason(fact *model.PackageVersionFact) string {
	switch fact.Error {
	case model.FactNotFound:
		return "package not found in registry"
	case model.FactRateLimited:
		return "registry rate limit exceeded"
	case model.FactMalformed:
		return "registry returned a malformed response"
	case model.FactCanceled:
		return "lookup canceled or timed out"
	default:
		return "registry unreachable"
	}
}

// sortFindings orders by ecosystem, then case-insensitive name, then
// manifest path, then constraint.
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Ecosystem != b.Ecosystem {
			return a.Ecosystem < b.Ecosystem
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		if a.Manifest != b.Manifest {
			return a.Manifest < b.Manifest
		}
		if a.Constraint != b.Constraint {
			return a.Constraint < b.Constraint
		}
		return a.RawName < b.RawName
	})
}

func summarize(findings []model.Finding) model.Summary {
	s := model.Summary{
		TotalPackages:    len(findings),
		ByClassification: make(map[model.Classification]int, len(model.Classifications)),
		ByEcosystem:      make(map[model.Ecosystem]int),
	}
	for _, c := range model.Classifications {
		s.ByClassification[c] = 0
	}
	for _, f := range findings {
		s.ByClassification[f.Classification]++
		s.ByEcosystem[f.Ecosystem]++
	}
	s.OutdatedCount = s.ByClassification[model.Outdated]
	s.DeprecatedCount = s.ByClassification[model.Deprecated]
	s.UnresolvedCount = s.ByClassification[model.Unresolved]

	s.HealthScore = 100
	if s.TotalPackages > 0 {
		s.HealthScore = int(math.Round(100 * float64(s.ByClassification[model.UpToDate]) / float64(s.TotalPackages)))
	}
	return s
}
