// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Command is an external process invocation.
type Command struct {
	Args        []string
	WorkingDir  string
	Environment map[string]string
}

// Executor defines the interface for running external commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and waits for it to finish.
	// Output is copied to stdout and stderr.
	Execute(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
}
