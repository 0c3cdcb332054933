// Package logger defines the logging interface used for cookie
// handling diagnostics. Cookie handling is best-effort middleware:
// problems are reported through a Logger and never fail a call, so
// embedding code decides where (or whether) the reports go.
package logger

import (
	"fmt"
	"log"
)

// Logger receives diagnostics such as skipped unparseable cookies or
// rejected domain mismatches. Cookie values must never be passed to a
// Logger; only names and domains may appear in messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...any)

	// Warning logs a recoverable problem, e.g. a cookie that was
	// skipped because it could not be parsed.
	Warning(format string, args ...any)

	// Error logs a failure.
	Error(format string, args ...any)
}

// StandardLogger writes through a stdlib *log.Logger with a level
// prefix per message.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger wraps the given *log.Logger. Passing nil uses
// log.Default().
func NewStandardLogger(l *log.Logger) *StandardLogger {
	if l == nil {
		l = log.Default()
	}
	return &StandardLogger{logger: l}
}

func (s *StandardLogger) Info(format string, args ...any) {
	s.logger.Printf("[INFO] "+format, args...)
}

func (s *StandardLogger) Warning(format string, args ...any) {
	s.logger.Printf("[WARNING] "+format, args...)
}

func (s *StandardLogger) Error(format string, args ...any) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// NopLogger discards all messages. It is the default for jars and
// adapters constructed without an explicit logger.
type NopLogger struct{}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Info(string, ...any)    {}
func (*NopLogger) Warning(string, ...any) {}
func (*NopLogger) Error(string, ...any)   {}

// MockLogger records formatted messages for assertion in tests.
type MockLogger struct {
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger { return &MockLogger{} }

func (m *MockLogger) Info(format string, args ...any) {
	m.InfoCalls = append(m.InfoCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Warning(format string, args ...any) {
	m.WarningCalls = append(m.WarningCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...any) {
	m.ErrorCalls = append(m.ErrorCalls, fmt.Sprintf(format, args...))
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
	_ Logger = (*MockLogger)(nil)
)
