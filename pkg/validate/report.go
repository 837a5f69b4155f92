package validate

import (
	"encoding/json"
	"io"
)

// Report is the JSON-serializable validation report written next to a
// converted file.
type Report struct {
	Dialect       string                 `json:"dialect"`
	Stage         string                 `json:"stage,omitempty"`
	TotalFindings int                    `json:"total_findings"`
	Severities    map[string]int         `json:"severities"`
	Categories    map[string]CategorySum `json:"categories"`
	Findings      []Finding              `json:"findings"`
}

// CategorySum summarizes findings for a single category.
type CategorySum struct {
	Total   int    `json:"total"`
	Fixable int    `json:"fixable"`
	Fixed   int    `json:"fixed"`
	Label   string `json:"label"`
}

var categoryLabels = map[Category]string{
	CatHeader:         "Database Header Flags",
	CatFlags:          "Unknown Flag and Power Bits",
	CatCounts:         "Declared Count Mismatches",
	CatIntegrityError: "Referential Integrity Errors",
	CatIntegrityWarn:  "Referential Integrity Warnings",
	CatAttrNames:      "Attribute Name Table",
	CatAttrFlags:      "Attribute Flag Anomalies",
	CatLocks:          "Lock Round-Trip Drift",
	CatEscapeSeq:      "Unusual Escape Sequences",
}

// GenerateReport builds a Report from the validator's current findings.
// stage labels the pass, e.g. "source" or "target".
func GenerateReport(v *Validator, stage string) *Report {
	r := &Report{
		Dialect:       v.target.Dialect().String(),
		Stage:         stage,
		TotalFindings: len(v.findings),
		Severities:    make(map[string]int),
		Categories:    make(map[string]CategorySum),
		Findings:      v.findings,
	}
	if r.Findings == nil {
		r.Findings = []Finding{}
	}

	catCounts := make(map[Category]*CategorySum)
	for _, f := range v.findings {
		r.Severities[f.Severity.String()]++
		cs, ok := catCounts[f.Category]
		if !ok {
			cs = &CategorySum{Label: categoryLabels[f.Category]}
			catCounts[f.Category] = cs
		}
		cs.Total++
		if f.Fixable {
			cs.Fixable++
		}
		if f.Fixed {
			cs.Fixed++
		}
	}
	for cat, cs := range catCounts {
		r.Categories[cat.String()] = *cs
	}

	return r
}

// WriteJSON writes the report as JSON to the given writer.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteReports writes several reports as one JSON array.
func WriteReports(w io.Writer, reports []*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
