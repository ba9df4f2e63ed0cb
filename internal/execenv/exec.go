// Package execenv runs a child command with resolved secrets added to its
// environment. Values are handed to the child only; nothing is written to
// disk or exported into the calling process.
package execenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
)

// Executor handles running commands with ephemeral environment variables
type Executor struct {
	logger *logging.Logger
}

// New creates a new executor
func New(logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{logger: logger}
}

// Options configures command execution
type Options struct {
	Command     []string          // Command and arguments to run
	Environment map[string]string // Variables injected into the child
	// KeepExisting lets variables already present in the parent environment
	// win over injected ones.
	KeepExisting bool
	PrintVars    bool // Print injected names with masked values to Stderr
	WorkingDir   string
	Timeout      time.Duration // Zero means no limit

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ChildExitError reports a child that ran and exited non-zero.
type ChildExitError struct {
	Code int
}

func (e ChildExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// Run starts the command and waits for it.
func (e *Executor) Run(ctx context.Context, opts Options) error {
	if len(opts.Command) == 0 {
		return dverrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., dsvault exec --map api-key=API_KEY -- npm start)",
		}
	}

	name := opts.Command[0]
	if _, err := exec.LookPath(name); err != nil {
		return dverrors.WrapCommandNotFound(name, err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if opts.PrintVars {
		PrintMasked(stderr, opts.Environment)
	}

	cmd := exec.CommandContext(ctx, name, opts.Command[1:]...)
	cmd.Env = BuildEnvironment(os.Environ(), opts.Environment, opts.KeepExisting)
	cmd.Dir = opts.WorkingDir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	// grandchildren holding the output pipes must not outlive a kill
	cmd.WaitDelay = time.Second

	e.logger.Debug("Executing command: %s", strings.Join(opts.Command, " "))
	e.logger.Debug("Injected variables: %d", len(opts.Environment))

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return dverrors.CommandError{
			Command:    strings.Join(opts.Command, " "),
			Message:    fmt.Sprintf("killed after %s", opts.Timeout),
			Suggestion: "Raise --exec-timeout or check why the command hangs",
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return ChildExitError{Code: code}
	}
	return dverrors.CommandError{
		Command:    strings.Join(opts.Command, " "),
		Message:    err.Error(),
		Suggestion: "Check the command output above for details",
	}
}

// BuildEnvironment merges vars into base, a KEY=VALUE list such as
// os.Environ(). Injected values replace existing ones unless keepExisting is
// set. The result is sorted.
func BuildEnvironment(base []string, vars map[string]string, keepExisting bool) []string {
	env := make(map[string]string, len(base)+len(vars))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			env[key] = value
		}
	}

	for key, value := range vars {
		if _, exists := env[key]; exists && keepExisting {
			continue
		}
		env[key] = value
	}

	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, key+"="+value)
	}
	sort.Strings(result)
	return result
}

// PrintMasked writes the variable names with masked values.
func PrintMasked(w io.Writer, vars map[string]string) {
	if len(vars) == 0 {
		fmt.Fprintln(w, "No environment variables resolved")
		return
	}

	fmt.Fprintf(w, "Resolved %d environment variables:\n", len(vars))
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s=%s\n", name, MaskValue(vars[name]))
	}
}

// MaskValue hides most of a value while keeping it recognisable.
func MaskValue(value string) string {
	switch n := len(value); {
	case n == 0:
		return "(empty)"
	case n <= 3:
		return strings.Repeat("*", n)
	case n <= 8:
		return value[:1] + strings.Repeat("*", n-2) + value[n-1:]
	default:
		return value[:3] + strings.Repeat("*", 8) + value[n-2:]
	}
}
