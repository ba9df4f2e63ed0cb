package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a failed external command, such as the openssl binary
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ForUser turns a classified store error into a UserError with a suggestion.
// Errors that are not classified are returned unchanged.
func ForUser(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if !errors.As(err, &classified) {
		return err
	}
	return UserError{
		Message:    err.Error(),
		Suggestion: Suggest(err),
		Err:        err,
	}
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"openssl": "Install OpenSSL (brew install openssl, apt install openssl) or use --backend native",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: suggestion,
	}
}

// rootCauses maps fragments of low-level error text to friendlier errors.
var rootCauses = []struct {
	fragment string
	build    func(err error) error
}{
	{"yaml:", func(error) error {
		return ConfigError{Message: "Invalid YAML format", Suggestion: "Check for indentation errors and missing quotes"}
	}},
	{"permission denied", func(err error) error {
		return UserError{Message: "Permission denied", Suggestion: "Check file permissions or run with appropriate privileges", Err: err}
	}},
	{"no such file or directory", func(err error) error {
		return UserError{Message: "File or directory not found", Suggestion: "Verify the path exists and is spelled correctly", Err: err}
	}},
}

// SimplifyError turns err into something fit for the terminal. Errors that
// already carry user context pass through; classified store errors gain a
// suggestion.
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	var (
		userErr    UserError
		cfgErr     ConfigError
		cmdErr     CommandError
		classified *Error
	)
	switch {
	case errors.As(err, &userErr), errors.As(err, &cfgErr), errors.As(err, &cmdErr):
		return err
	case errors.As(err, &classified):
		return ForUser(err)
	}

	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	text := root.Error()
	for _, rc := range rootCauses {
		if strings.Contains(text, rc.fragment) {
			return rc.build(err)
		}
	}
	return err
}
