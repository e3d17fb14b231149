// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// Logger is the structured logging contract used by the domain layers.
// Adapters decide where records go; the domain only attaches fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Named returns a child logger tagged with a component name
	Named(component string) Logger
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (convenience function)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates the conventional "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// NoOpLogger discards everything (useful for tests)
type NoOpLogger struct{}

// Debug does nothing
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// Named returns the same no-op logger
func (n *NoOpLogger) Named(_ string) Logger { return n }
