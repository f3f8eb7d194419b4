// Package log is the structured logging facade injected into the sync engine.
package log

import "context"

// Fields is a set of structured key/value pairs attached to one log line.
type Fields = map[string]interface{}

// Logger is implemented by the zerolog adapter. Services depend on this
// interface; repository packages log through the global zerolog logger.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	Fatal(ctx context.Context, msg string, err error, fields ...Fields) // exits the process
	With(fields Fields) Logger
}
