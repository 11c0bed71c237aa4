// Package sarif renders scan findings as a SARIF 2.1.0 log.
package sarif

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version   = "2.1.0"
	ToolName  = "gosek"
)

// Report is the top-level SARIF report structure
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`

	ruleIDs map[string]string // template name -> rule ID
}

// Run represents a single invocation of the tool
type Run struct {
	Tool        Tool         `json:"tool"`
	Results     []Result     `json:"results"`
	Invocations []Invocation `json:"invocations,omitempty"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule represents a detection template
type Rule struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShortDescription ShortDescription `json:"shortDescription"`
	HelpURI          string           `json:"helpUri,omitempty"`
}

// ShortDescription contains rule description text
type ShortDescription struct {
	Text string `json:"text"`
}

// Result represents a single finding
type Result struct {
	RuleID    string     `json:"ruleId"`
	Level     string     `json:"level"`
	Message   Message    `json:"message"`
	Locations []Location `json:"locations"`
}

// Message contains the result message
type Message struct {
	Text string `json:"text"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies file location
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

// ArtifactLocation identifies the file
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region specifies the line/column range
type Region struct {
	StartLine   int      `json:"startLine"`
	StartColumn int      `json:"startColumn"`
	EndLine     int      `json:"endLine"`
	EndColumn   int      `json:"endColumn"`
	CharOffset  int      `json:"charOffset"`
	CharLength  int      `json:"charLength"`
	Snippet     *Snippet `json:"snippet,omitempty"`
}

// Snippet contains the matched text
type Snippet struct {
	Text string `json:"text"`
}

// Invocation records a target that could not be scanned.
type Invocation struct {
	ExecutionSuccessful        bool           `json:"executionSuccessful"`
	ToolExecutionNotifications []Notification `json:"toolExecutionNotifications,omitempty"`
}

// Notification is one tool execution message.
type Notification struct {
	Level   string  `json:"level"`
	Message Message `json:"message"`
}

// NewReport creates a new SARIF report with initialized structure
func NewReport(toolVersion string) *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: toolVersion,
						Rules:   []Rule{},
					},
				},
				Results: []Result{},
			},
		},
		ruleIDs: make(map[string]string),
	}
}

// AddRule adds a detection template to the report. A template whose name is
// already present replaces the earlier rule.
func (r *Report) AddRule(t types.Template) {
	sarifRule := Rule{
		ID:   t.RuleID(),
		Name: t.Name,
		ShortDescription: ShortDescription{
			Text: t.Description,
		},
	}
	if sarifRule.ShortDescription.Text == "" {
		sarifRule.ShortDescription.Text = t.Name
	}

	// Add first reference as helpUri if available
	if len(t.References) > 0 {
		sarifRule.HelpURI = t.References[0]
	}

	rules := r.Runs[0].Tool.Driver.Rules
	if prev, ok := r.ruleIDs[t.Name]; ok {
		for i := range rules {
			if rules[i].ID == prev {
				rules[i] = sarifRule
				break
			}
		}
	} else {
		r.Runs[0].Tool.Driver.Rules = append(rules, sarifRule)
	}
	r.ruleIDs[t.Name] = sarifRule.ID
}

// AddResult adds a finding result to the report. Findings whose pattern has
// no registered rule use the pattern name as the rule ID.
func (r *Report) AddResult(f types.Finding) {
	ruleID, ok := r.ruleIDs[f.PatternName]
	if !ok {
		ruleID = f.PatternName
	}

	endLine, endColumn := endPosition(f)
	region := Region{
		StartLine:   f.Position.Line,
		StartColumn: f.Position.Column,
		EndLine:     endLine,
		EndColumn:   endColumn,
		CharOffset:  f.Offset.Start,
		CharLength:  f.Offset.End - f.Offset.Start,
	}
	if f.MatchedText != "" {
		region.Snippet = &Snippet{Text: f.MatchedText}
	}

	result := Result{
		RuleID: ruleID,
		Level:  "warning",
		Message: Message{
			Text: f.PatternName,
		},
		Locations: []Location{
			{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{
						URI: targetURI(f.Target),
					},
					Region: region,
				},
			},
		},
	}

	r.Runs[0].Results = append(r.Runs[0].Results, result)
}

// AddError records a target that failed to scan.
func (r *Report) AddError(err *types.ScanError) {
	run := &r.Runs[0]
	if len(run.Invocations) == 0 {
		run.Invocations = []Invocation{{ExecutionSuccessful: true}}
	}
	inv := &run.Invocations[0]
	inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, Notification{
		Level:   "error",
		Message: Message{Text: err.Error()},
	})
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// endPosition returns the line and the exclusive end column of the match.
func endPosition(f types.Finding) (int, int) {
	text := f.MatchedText
	nl := strings.Count(text, "\n")
	if nl == 0 {
		return f.Position.Line, f.Position.Column + len(text)
	}
	return f.Position.Line + nl, len(text) - strings.LastIndexByte(text, '\n')
}

// targetURI converts a target to SARIF URI format. URLs are used as-is,
// absolute paths get a file:// prefix and relative paths stay as-is.
func targetURI(t types.Target) string {
	switch t.Kind {
	case types.KindURL:
		return t.Value
	case types.KindText:
		return "text"
	}
	return formatFileURI(t.Value)
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		// Normalize path separators for URI format
		path = filepath.ToSlash(path)
		// Ensure path starts with /
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	// Relative paths stay as-is
	return filepath.ToSlash(path)
}
