package report

import (
	"encoding/json"
	"io"

	"github.com/shellhound/shellhound/internal/task"
)

type jsonReport struct {
	Summary task.Summary `json:"summary"`
	Entries []task.Entry `json:"entries"`
}

// WriteJSON writes the run summary and every entry as one JSON document.
func WriteJSON(w io.Writer, t *task.Task) error {
	doc := jsonReport{Summary: t.Summary(), Entries: t.Entries}
	if doc.Entries == nil {
		doc.Entries = []task.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
