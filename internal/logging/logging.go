package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a deliberately small, framework-agnostic logging interface.
// Components depend on this, never on the backend.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value any
}

// Options controls the backend of a StdoutLogger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Format is "json" (default) or "text" for colored console output.
	Format string

	// Out defaults to os.Stdout.
	Out io.Writer
}

// StdoutLogger is a structured logger backed by logrus.
// It implements Logger and prints one entry per line.
type StdoutLogger struct {
	entry *logrus.Entry
}

// NewStdoutLogger creates a JSON-lines logger at info level. component is
// attached to every entry when non-empty.
func NewStdoutLogger(component string) *StdoutLogger {
	return NewLogger(component, Options{})
}

// NewLogger creates a StdoutLogger with explicit backend options.
func NewLogger(component string, opts Options) *StdoutLogger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	if opts.Out != nil {
		base.SetOutput(opts.Out)
	}

	if strings.EqualFold(opts.Format, "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "msg"},
		})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	entry := logrus.NewEntry(base)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return &StdoutLogger{entry: entry}
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[f.Key] = err.Error()
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.entry.WithFields(toLogrus(fields)).Debug(msg)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.entry.WithFields(toLogrus(fields)).Info(msg)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.entry.WithFields(toLogrus(fields)).Warn(msg)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.entry.WithFields(toLogrus(fields)).Error(msg)
}

// With returns a child logger carrying fields on every entry.
func (s *StdoutLogger) With(fields ...Field) Logger {
	return &StdoutLogger{entry: s.entry.WithFields(toLogrus(fields))}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewLogger("", Options{Out: io.Discard, Level: "error"})
}
