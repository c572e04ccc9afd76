package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sambabib/depdoctor/pkg/model"
)

const reasonLimit = 60 // Max characters for the reason column

// WriteText prints the findings as an aligned table followed by a summary.
func WriteText(out io.Writer, rep *model.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) // minwidth, tabwidth, padding, padchar, flags

	fmt.Fprintln(w, "ECOSYSTEM\tNAME\tDECLARED\tLATEST\tSTATUS\tSEVERITY\tMANIFEST\tREASON")
	fmt.Fprintln(w, "---------\t----\t--------\t------\t------\t--------\t--------\t------")

	for _, f := range rep.Findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Ecosystem,
			f.RawName,
			orDash(f.Constraint),
			orDash(f.LatestVersion),
			f.Classification,
			f.Severity,
			f.Manifest,
			truncate(f.Reason, reasonLimit),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := rep.Summary
	fmt.Fprintf(out, "\n%d manifest(s), %d dependencies: %d outdated, %d deprecated, %d unresolved, %d up-to-date\n",
		rep.ManifestsScanned, s.TotalPackages, s.OutdatedCount, s.DeprecatedCount, s.UnresolvedCount,
		s.ByClassification[model.UpToDate])
	_, err := fmt.Fprintf(out, "Health score: %d/100\n", s.HealthScore)
	if err != nil {
		return err
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, warn := range rep.Warnings {
			fmt.Fprintf(out, "  %s: %s\n", warn.Path, warn.Message)
		}
	}
	return nil
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\t", " ") // Replace tabs to avoid breaking alignment
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit-3]) + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
