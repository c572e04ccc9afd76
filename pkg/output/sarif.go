package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sambabib/depdoctor/pkg/model"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations,omitempty"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string            `json:"id"`
	ShortDescription SarifMessage      `json:"shortDescription"`
	FullDescription  SarifMessage      `json:"fullDescription"`
	Help             SarifMessage      `json:"help"`
	Properties       map[string]string `json:"properties,omitempty"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           *SarifRegion          `json:"region,omitempty"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifRegion represents a region in the code
type SarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

// WriteSARIF writes the actionable findings as a SARIF 2.1.0 log. Up-to-date
// findings produce no result.
func WriteSARIF(w io.Writer, rep *model.Report, version string) error {
	rules := []SarifRule{
		{
			ID:               "outdated-major",
			ShortDescription: SarifMessage{Text: "Major version update available"},
			FullDescription:  SarifMessage{Text: "A major version update is available for this dependency, which may include breaking changes."},
			Help:             SarifMessage{Text: "Consider updating with caution and review the changelog for breaking changes."},
		},
		{
			ID:               "outdated-minor",
			ShortDescription: SarifMessage{Text: "Minor version update available"},
			FullDescription:  SarifMessage{Text: "A minor version update is available for this dependency, which may include new features."},
			Help:             SarifMessage{Text: "Consider updating to get new features."},
		},
		{
			ID:               "outdated-patch",
			ShortDescription: SarifMessage{Text: "Patch update available"},
			FullDescription:  SarifMessage{Text: "A patch update is available for this dependency, which may include bug fixes."},
			Help:             SarifMessage{Text: "Consider updating to get bug fixes."},
		},
		{
			ID:               "deprecated",
			ShortDescription: SarifMessage{Text: "Deprecated dependency"},
			FullDescription:  SarifMessage{Text: "This dependency is marked as deprecated by its maintainers."},
			Help:             SarifMessage{Text: "Consider finding an alternative or replacement package."},
		},
		{
			ID:               "unresolved",
			ShortDescription: SarifMessage{Text: "Unresolved dependency"},
			FullDescription:  SarifMessage{Text: "The latest version of this dependency could not be determined from its registry."},
			Help:             SarifMessage{Text: "Check the package name, registry configuration and network access."},
		},
	}

	results := make([]SarifResult, 0, len(rep.Findings))
	for _, f := range rep.Findings {
		var ruleID string
		switch f.Classification {
		case model.Deprecated:
			ruleID = "deprecated"
		case model.Unresolved:
			ruleID = "unresolved"
		case model.Outdated:
			ruleID = "outdated-" + f.UpdateType
		default:
			continue
		}

		messageText := fmt.Sprintf("%s (%s): declared %s, latest %s",
			f.RawName, f.Ecosystem, orDash(f.Constraint), orDash(f.LatestVersion))
		if f.Reason != "" {
			messageText += fmt.Sprintf(" (%s)", f.Reason)
		}

		results = append(results, SarifResult{
			RuleID:  ruleID,
			Level:   sarifLevel(f.Severity),
			Message: SarifMessage{Text: messageText},
			Locations: []SarifLocation{
				{
					PhysicalLocation: SarifPhysicalLocation{
						ArtifactLocation: SarifArtifactLocation{URI: f.Manifest},
					},
				},
			},
		})
	}

	if version == "" {
		version = "dev"
	}
	run := SarifRun{
		Tool: SarifTool{
			Driver: SarifDriver{
				Name:           "depdoctor",
				Version:        version,
				InformationURI: "https://github.com/sambabib/depdoctor",
				Rules:          rules,
			},
		},
		Results: results,
	}
	if !rep.GeneratedAt.IsZero() {
		ts := rep.GeneratedAt.UTC().Format(time.RFC3339)
		run.Invocations = []SarifInvocation{{ExecutionSuccessful: true, StartTimeUtc: ts, EndTimeUtc: ts}}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs:    []SarifRun{run},
	})
}

// sarifLevel maps finding severities onto SARIF result levels.
func sarifLevel(severity string) string {
	switch severity {
	case "error":
		return "error"
	case "warning":
		return "warning"
	default:
		return "note"
	}
}
