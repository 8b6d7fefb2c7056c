// Package feed defines the storage vocabulary shared by every backend:
// mutations and their operations, commit results, the storage interfaces,
// and the scheduling contract that production callers run inside.
package feed

import "errors"

// ErrWrongThread is returned by thread policy checks when work runs on the
// wrong logical thread.
var ErrWrongThread = errors.New("called on the wrong thread")

// Logger provides structured logging. The args follow slog conventions:
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}
