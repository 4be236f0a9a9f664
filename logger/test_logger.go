package logger

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestLogger buffers log entries and writes them to the test log only when
// the test fails
type TestLogger struct {
	t      testing.TB
	buffer []Entry
	mu     sync.Mutex
}

// Entry is a single buffered log line
type Entry struct {
	Level     string
	Message   string
	Args      []interface{}
	Timestamp time.Time
}

// String formats the entry with key=value pairs like charmbracelet/log
func (e Entry) String() string {
	msg := fmt.Sprintf("[%s] [%s] %s", e.Timestamp.Format("15:04:05.000"), e.Level, e.Message)

	parts := []string{}
	for i := 0; i < len(e.Args); i += 2 {
		if i+1 < len(e.Args) {
			parts = append(parts, fmt.Sprintf("%v=%v", e.Args[i], e.Args[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", e.Args[i]))
		}
	}

	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " ")
	}

	return msg
}

// NewTestLogger creates a TestLogger bound to t
func NewTestLogger(t testing.TB) *TestLogger {
	logger := &TestLogger{
		t:      t,
		buffer: []Entry{},
	}

	t.Cleanup(logger.flushIfFailed)

	return logger
}

var _ Logger = (*TestLogger)(nil)

func (l *TestLogger) Info(msg string, args ...interface{}) {
	l.addEntry("INFO", msg, args)
}

func (l *TestLogger) Debug(msg string, args ...interface{}) {
	l.addEntry("DEBUG", msg, args)
}

func (l *TestLogger) Warn(msg string, args ...interface{}) {
	l.addEntry("WARN", msg, args)
}

func (l *TestLogger) Error(msg string, args ...interface{}) {
	l.addEntry("ERROR", msg, args)
}

// Entries returns a copy of the buffered entries
func (l *TestLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Entry{}, l.buffer...)
}

// HasMessage returns true when an entry with the given level and message
// was logged, an empty level matches any level
func (l *TestLogger) HasMessage(level, msg string) bool {
	for _, e := range l.Entries() {
		if (level == "" || e.Level == level) && e.Message == msg {
			return true
		}
	}

	return false
}

func (l *TestLogger) addEntry(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = append(l.buffer, Entry{
		Level:     level,
		Message:   msg,
		Args:      args,
		Timestamp: time.Now(),
	})
}

func (l *TestLogger) flushIfFailed() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.t.Failed() {
		l.t.Log("=== Buffered Logs (test failed) ===")
		for _, entry := range l.buffer {
			l.t.Log(entry.String())
		}
		l.t.Log("=== End Buffered Logs ===")
	}

	l.buffer = l.buffer[:0]
}
