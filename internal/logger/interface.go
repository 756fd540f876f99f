// Package logger is the structured logging facade used across the
// application. Every entry carries the emitting component plus free-form
// fields.
package logger

// Logger is satisfied by ZerologAdapter; tests use NewNop.
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}

var _ Logger = (*ZerologAdapter)(nil)
