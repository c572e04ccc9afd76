package output

import (
	"encoding/json"
	"io"

	"github.com/sambabib/depdoctor/pkg/model"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
