package report

import (
	"io"

	"github.com/praetorian-inc/gosek/pkg/sarif"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// SARIF accumulates findings into a SARIF 2.1.0 log written on Close.
type SARIF struct {
	w      io.Writer
	report *sarif.Report
	logger zerolog.Logger
}

// NewSARIF creates a SARIF sink. templates become the log's rules.
func NewSARIF(w io.Writer, toolVersion string, templates []types.Template, logger zerolog.Logger) *SARIF {
	report := sarif.NewReport(toolVersion)
	for _, t := range templates {
		report.AddRule(t)
	}
	return &SARIF{w: w, report: report, logger: logger}
}

// Emit adds the event's findings, or its error as a notification.
func (s *SARIF) Emit(ev scanner.Event) error {
	if ev.Err != nil {
		logFailure(s.logger, ev.Err)
		s.report.AddError(ev.Err)
		return nil
	}
	for _, f := range ev.Findings {
		s.report.AddResult(f)
	}
	return nil
}

// Report exposes the accumulated log.
func (s *SARIF) Report() *sarif.Report { return s.report }

// Close writes the log.
func (s *SARIF) Close() error {
	data, err := s.report.ToJSON()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}
