package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/shellhound/shellhound/internal/task"
)

const (
	sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"
	ruleID      = "shellhound/webshell"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	RuleIndex  int            `json:"ruleIndex"`
	Level      string         `json:"level"`
	Message    sarifMessage   `json:"message"`
	Locations  []sarifLoc     `json:"locations"`
	Properties map[string]int `json:"properties"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt `json:"artifactLocation"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

// levelOf maps a warning level to a SARIF result level.
func levelOf(w int) string {
	switch {
	case w >= 10:
		return "error"
	case w >= 5:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes the Danger entries of t as SARIF 2.1.0 results.
func WriteSARIF(w io.Writer, t *task.Task, version string) error {
	if version == "" {
		version = "dev"
	}
	s := t.Summary()
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:    "shellhound",
			Version: version,
			Rules: []sarifRule{{
				ID:               ruleID,
				Name:             "WebShellSignature",
				ShortDescription: sarifMessage{Text: "File content matches known web shell signatures"},
			}},
		}},
		Results: []sarifResult{},
		Properties: map[string]any{
			"files":   s.Files,
			"dangers": s.Dangers,
			"errors":  s.Errors,
		},
	}
	for _, e := range t.Dangers() {
		run.Results = append(run.Results, sarifResult{
			RuleID: ruleID,
			Level:  levelOf(e.WarningLevel),
			Message: sarifMessage{Text: fmt.Sprintf("warning level %d (%d fingerprint, %d pattern matches)",
				e.WarningLevel, e.FingerprintMatches, e.PatternMatches)},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: filepath.ToSlash(displayPath(t.Root, e.Path))}},
			}},
			Properties: map[string]int{
				"warningLevel":       e.WarningLevel,
				"fingerprintMatches": e.FingerprintMatches,
				"fingerprintScore":   e.FingerprintScore,
				"patternMatches":     e.PatternMatches,
				"patternScore":       e.PatternScore,
			},
		})
	}
	doc := sarif{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
