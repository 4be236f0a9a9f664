package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// StdOutLogger implements the Logger interface using charmbracelet/log
type StdOutLogger struct {
	logger *log.Logger
}

// NewStdOutLogger creates a new StdOutLogger logging at debug level
func NewStdOutLogger() *StdOutLogger {
	return NewWriterLogger(os.Stdout, log.DebugLevel)
}

// NewLevelLogger creates a StdOutLogger from a level name such as "info",
// unknown names fall back to info
func NewLevelLogger(level string) *StdOutLogger {
	l, err := log.ParseLevel(level)
	if err != nil {
		l = log.InfoLevel
	}

	return NewWriterLogger(os.Stderr, l)
}

// NewWriterLogger creates a StdOutLogger writing to w
func NewWriterLogger(w io.Writer, level log.Level) *StdOutLogger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "pluggable",
	})

	return &StdOutLogger{logger: logger}
}

// With returns a logger that adds args to every entry
func (l *StdOutLogger) With(args ...interface{}) *StdOutLogger {
	return &StdOutLogger{logger: l.logger.With(args...)}
}

// Ensure StdOutLogger implements the Logger interface
var _ Logger = (*StdOutLogger)(nil)

// Info logs an informational message
func (l *StdOutLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, args...)
}

// Debug logs a debug message
func (l *StdOutLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(msg, args...)
}

// Warn logs a warning message
func (l *StdOutLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *StdOutLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, args...)
}
