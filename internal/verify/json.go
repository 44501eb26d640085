package verify

import (
	"encoding/json"
	"io"
)

// FormatJSON writes the Report as compact JSON to the given writer.
// Returns an error if JSON encoding fails.
func FormatJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}
