package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sambabib/depdoctor/pkg/model"
)

var statusIcon = map[model.Classification]string{
	model.UpToDate:   "✅",
	model.Outdated:   "⬆️",
	model.Deprecated: "⛔",
	model.Unresolved: "❓",
}

// WriteMarkdown renders a summary table and one row per finding, suitable
// for pull request comments.
func WriteMarkdown(w io.Writer, rep *model.Report) error {
	var b strings.Builder
	s := rep.Summary

	b.WriteString("# Dependency Report\n\n")
	fmt.Fprintf(&b, "**Repository:** `%s`  \n", rep.RepositoryPath)
	if !rep.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s  \n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "**Health score:** %d/100\n\n", s.HealthScore)

	b.WriteString("| Status | Count |\n|---|---|\n")
	for _, c := range model.Classifications {
		fmt.Fprintf(&b, "| %s %s | %d |\n", statusIcon[c], c, s.ByClassification[c])
	}
	fmt.Fprintf(&b, "| **Total** | **%d** |\n\n", s.TotalPackages)

	if len(rep.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		b.WriteString("| Ecosystem | Package | Declared | Latest | Status | Manifest |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, f := range rep.Findings {
			fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %s %s | %s |\n",
				f.Ecosystem, f.RawName, mdCell(orDash(f.Constraint)), mdCell(orDash(f.LatestVersion)),
				statusIcon[f.Classification], f.Classification, mdCell(f.Manifest))
		}
		b.WriteString("\n")
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warn := range rep.Warnings {
			fmt.Fprintf(&b, "- `%s`: %s\n", warn.Path, warn.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// mdCell escapes characters that break a table cell.
func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
