package model

import "time"

// Classification is the staleness status of one finding.
type Classification string

const (
	UpToDate   Classification = "up-to-date"
	Outdated   Classification = "outdated"
	Deprecated Classification = "deprecated"
	Unresolved Classification = "unresolved"
)

// Classifications lists every classification in display order.
var Classifications = []Classification{Deprecated, Outdated, Unresolved, UpToDate}

// Finding is one row of the final report.
type Finding struct {
	DeclaredDependency
	LatestVersion  string         `json:"latest_version,omitempty"`
	Deprecated     bool           `json:"deprecated"`
	Classification Classification `json:"classification"`
	UpdateType     string         `json:"update_type,omitempty"` // major, minor or patch when outdated
	Severity       string         `json:"severity"`              // e.g. "ok", "info", "warning", "error"
	Reason         string         `json:"reason,omitempty"`
	// LatestAllowed reports whether the declared constraint already admits
	// the latest version. Nil when the two could not be compared.
	LatestAllowed *bool `json:"latest_allowed,omitempty"`
}

// Warning records a manifest that could not be read or parsed.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Summary holds aggregate counters over a report's findings.
type Summary struct {
	TotalPackages    int                    `json:"total_packages"`
	ByClassification map[Classification]int `json:"by_classification"`
	ByEcosystem      map[Ecosystem]int      `json:"by_ecosystem"`
	OutdatedCount    int                    `json:"outdated_count"`
	DeprecatedCount  int                    `json:"deprecated_count"`
	UnresolvedCount  int                    `json:"unresolved_count"`
	HealthScore      int                    `json:"health_score"`
}

// Report is the top-level output of an analysis run.
type Report struct {
	RepositoryPath   string    `json:"repository_path"`
	GeneratedAt      time.Time `json:"generated_at,omitzero"`
	ManifestsScanned int       `json:"manifests_scanned"`
	Manifests        []string  `json:"manifests"`
	Warnings         []Warning `json:"warnings"`
	Findings         []Finding `json:"findings"`
	Summary          Summary   `json:"summary"`
}
