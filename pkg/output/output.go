// Package output renders analysis reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sambabib/depdoctor/pkg/model"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "sarif", "markdown"}

// Write renders rep in the named format. version is reported by formats
// that identify the tool.
func Write(w io.Writer, format string, rep *model.Report, version string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, rep)
	case "json":
		return WriteJSON(w, rep)
	case "sarif":
		return WriteSARIF(w, rep, version)
	case "markdown", "md":
		return WriteMarkdown(w, rep)
	default:
		return fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}
