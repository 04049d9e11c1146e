// Package services holds the application operations behind the HTTP and
// MCP surfaces: flow management, execution and client registration.
package services

import "errors"

var (
	// ErrPersistence wraps any failure to write an execution trace. Nothing
	// is recorded when it is returned.
	ErrPersistence = errors.New("failed to persist execution")

	ErrClientNameRequired = errors.New("client name is required")
)

// Logger is the subset of the application logger the services use.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
