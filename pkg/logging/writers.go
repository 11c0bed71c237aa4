package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// WriterStrategy wraps an output in a format-specific writer.
type WriterStrategy interface {
	CreateWriter(output io.Writer) io.Writer
}

// JSONWriterStrategy writes raw zerolog JSON
type JSONWriterStrategy struct{}

// CreateWriter returns output unchanged
func (JSONWriterStrategy) CreateWriter(output io.Writer) io.Writer {
	return output
}

// ConsoleWriterStrategy creates console formatted writers
type ConsoleWriterStrategy struct {
	NoColor bool
}

// CreateWriter creates a console writer
func (s ConsoleWriterStrategy) CreateWriter(output io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    s.NoColor,
	}
}

// TextWriterStrategy creates text formatted writers
type TextWriterStrategy struct{}

// CreateWriter creates a text writer
func (TextWriterStrategy) CreateWriter(output io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
}

// strategyFor picks the writer strategy for a format.
func strategyFor(format Format, noColor bool) WriterStrategy {
	switch format {
	case FormatJSON:
		return JSONWriterStrategy{}
	case FormatText:
		return TextWriterStrategy{}
	default:
		return ConsoleWriterStrategy{NoColor: noColor}
	}
}
