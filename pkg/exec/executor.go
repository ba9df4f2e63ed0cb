// Package exec provides abstractions for command execution.
// This package enables testable code by allowing CLI commands to be mocked.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Request describes a single command invocation.
type Request struct {
	Name  string
	Args  []string
	Stdin []byte
	// Env is appended to the current process environment. Use it for values
	// that must not appear on the command line.
	Env []string
}

// CommandExecutor defines an interface for executing shell commands.
// This abstraction allows for mocking CLI tool behavior in tests.
type CommandExecutor interface {
	// Execute runs a command with the given context.
	// Returns stdout, stderr, and any error that occurred.
	Execute(ctx context.Context, req Request) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor executes actual commands using os/exec.
// This is the production implementation.
type RealCommandExecutor struct{}

// Execute runs an actual command. The process is killed when ctx is done.
func (r *RealCommandExecutor) Execute(ctx context.Context, req Request) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, req.Name, req.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if req.Stdin != nil {
		cmd.Stdin = bytes.NewReader(req.Stdin)
	}
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the standard production executor.
// This is used as the default when no executor is injected.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}

// LookPath reports the resolved path of a binary.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
