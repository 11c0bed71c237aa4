package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/gosek/pkg/report"
	"github.com/praetorian-inc/gosek/pkg/scanner"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "scan" | "scan_batch" | "scan_targets" | "close"
	Payload json.RawMessage `json:"payload"`
}

// ScanPayload is the payload for "scan" requests
type ScanPayload struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ScanBatchPayload is the payload for "scan_batch" requests
type ScanBatchPayload struct {
	Items []ScanPayload `json:"items"`
}

// TargetsPayload is the payload for "scan_targets" requests. Each target
// is an http(s) URL or a file path, or inline text when Text is set.
type TargetsPayload struct {
	Targets []string `json:"targets"`
	Text    bool     `json:"text,omitempty"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "scan" | "scan_batch" | "scan_targets" | "decode" | "unknown"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version  string `json:"version"`
	Patterns int    `json:"patterns"`
}

// ScanResult is the data field for "scan" responses and one entry of a
// "scan_batch" response.
type ScanResult struct {
	Source    string          `json:"source"`
	Findings  []report.Record `json:"findings"`
	Truncated bool            `json:"truncated,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// BatchResult is the data field for "scan_batch" responses
type BatchResult struct {
	Results []ScanResult `json:"results"`
}

// TargetError reports a target that could not be scanned.
type TargetError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// TargetsResult is the data field for "scan_targets" responses
type TargetsResult struct {
	Findings []report.Record  `json:"findings"`
	Errors   []TargetError    `json:"errors,omitempty"`
	Summary  *scanner.Summary `json:"summary"`
}
