package logger

// Logger defines the interface for logging used by every pluggable
// component. Args are key value pairs.
type Logger interface {
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Nop is a Logger that discards everything
type Nop struct{}

func (Nop) Info(msg string, args ...interface{})  {}
func (Nop) Debug(msg string, args ...interface{}) {}
func (Nop) Warn(msg string, args ...interface{})  {}
func (Nop) Error(msg string, args ...interface{}) {}

var _ Logger = Nop{}
