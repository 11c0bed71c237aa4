// Package serve runs the scanner as a long-lived NDJSON server: one JSON
// request per input line, one JSON response per output line.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/matcher"
	"github.com/praetorian-inc/gosek/pkg/report"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/source"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server manages the streaming scanner
type Server struct {
	scanner *scanner.Scanner
	encoder *json.Encoder
	decoder *json.Decoder
	logger  zerolog.Logger
	ctx     context.Context
}

// NewServer creates a new streaming server
func NewServer(sc *scanner.Scanner, in io.Reader, out io.Writer, logger zerolog.Logger) *Server {
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	return &Server{
		scanner: sc,
		encoder: encoder,
		decoder: json.NewDecoder(bufio.NewReader(in)),
		logger:  logger.With().Str("component", "serve").Logger(),
		ctx:     context.Background(),
	}
}

// Run starts the server main loop. It returns nil when the input ends or a
// close request arrives, and the context error on cancellation.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until input closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(req) {
						return nil
					}
				default:
					// No more pending requests
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(req Request) bool {
	s.logger.Debug().Str("type", req.Type).Msg("Request received")
	switch req.Type {
	case "scan":
		s.handleScan(req.Payload)
	case "scan_batch":
		s.handleScanBatch(req.Payload)
	case "scan_targets":
		s.handleScanTargets(req.Payload)
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	s.send("ready", ReadyData{Version: Version, Patterns: s.scanner.PatternSet().Len()})
}

// scanContent matches content in memory. source labels the findings and
// defaults to "text".
func (s *Server) scanContent(p ScanPayload) ScanResult {
	res := matcher.Match([]byte(p.Content), s.scanner.PatternSet(), s.scanner.MatchOptions())

	label := p.Source
	if label == "" {
		label = types.TextTarget(p.Content).Label()
	}
	out := ScanResult{Source: label, Findings: []report.Record{}, Truncated: res.Truncated}
	for _, f := range res.Findings {
		rec := report.NewRecord(f.WithTarget(types.TextTarget(p.Content)))
		rec.Source = label
		out.Findings = append(out.Findings, rec)
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}

func (s *Server) handleScan(payload json.RawMessage) {
	var p ScanPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("scan", err.Error())
		return
	}
	s.send("scan", s.scanContent(p))
}

func (s *Server) handleScanBatch(payload json.RawMessage) {
	var p ScanBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("scan_batch", err.Error())
		return
	}

	result := BatchResult{Results: make([]ScanResult, 0, len(p.Items))}
	for _, item := range p.Items {
		result.Results = append(result.Results, s.scanContent(item))
	}
	s.send("scan_batch", result)
}

func (s *Server) handleScanTargets(payload json.RawMessage) {
	var p TargetsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("scan_targets", err.Error())
		return
	}

	mode := source.ModeAuto
	if p.Text {
		mode = source.ModeText
	}
	src := source.NewLines(strings.NewReader(strings.Join(p.Targets, "\n")), "request", mode, s.logger)

	var sink scanner.CollectSink
	summary, err := s.scanner.Run(s.ctx, src, &sink)
	if err != nil {
		s.sendError("scan_targets", err.Error())
		return
	}

	result := TargetsResult{Findings: []report.Record{}, Summary: summary}
	for _, f := range sink.Findings() {
		result.Findings = append(result.Findings, report.NewRecord(f))
	}
	for _, e := range sink.Errors() {
		result.Errors = append(result.Errors, TargetError{Source: e.Target.Label(), Error: e.Cause.Error()})
	}
	s.send("scan_targets", result)
}

func (s *Server) send(respType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(respType, err.Error())
		return
	}
	if err := s.encoder.Encode(Response{Success: true, Type: respType, Data: data}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) sendError(reqType, msg string) {
	if err := s.encoder.Encode(Response{Success: false, Type: reqType, Error: msg}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
