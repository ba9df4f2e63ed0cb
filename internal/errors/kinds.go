package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a secret store failure. A Kind is itself an error so it can
// be used as the target of errors.Is:
//
//	if errors.Is(err, dverrors.KeyNotFound) { ... }
type Kind string

func (k Kind) Error() string {
	return string(k)
}

// Key provider failures
const (
	KeyNotFound    Kind = "master key not found"
	KeyEmpty       Kind = "master key is empty"
	KeyReadError   Kind = "master key unreadable"
	KeyUnavailable Kind = "master key unavailable"
)

// Decrypt path failures
const (
	SecretNotFound    Kind = "secret not found"
	InvalidName       Kind = "invalid secret name"
	DecryptionFailed  Kind = "decryption failed"
	DecryptionTimeout Kind = "decryption timed out"
	EmptyPlaintext    Kind = "decrypted value is empty"
)

// Encrypt path failures
const (
	EncryptionFailed  Kind = "encryption failed"
	EncryptionTimeout Kind = "encryption timed out"
)

// Error is a classified secret store failure. It carries enough context to
// debug a misconfigured key or a corrupted record and never the key or the
// plaintext.
type Error struct {
	Kind       Kind
	Op         string // "decrypt", "encrypt", "key", ...
	Name       string // secret name, when applicable
	Path       string // file involved, when applicable
	Diagnostic string // backend or OS diagnostic text
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Name != "" {
		fmt.Fprintf(&b, " for secret %q", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Diagnostic != "" {
		b.WriteString(": ")
		b.WriteString(e.Diagnostic)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's Kind. Wrapped errors are matched
// through Unwrap, so a KeyUnavailable error wrapping a KeyNotFound error
// matches both kinds.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the outermost Kind in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// Suggest returns a remediation hint for a classified error, or "".
func Suggest(err error) string {
	switch {
	case errors.Is(err, KeyNotFound):
		return "Run 'dsvault init' to create a master key, or point --config at the right base directory"
	case errors.Is(err, KeyEmpty):
		return "The master key file is blank. Restore the key or run 'dsvault init --force' (existing secrets become unreadable)"
	case errors.Is(err, KeyReadError):
		return "Check the permissions of the master key file"
	case errors.Is(err, SecretNotFound):
		return "List stored secrets with 'dsvault list'"
	case errors.Is(err, InvalidName):
		return "Secret names must not be empty or contain path separators"
	case errors.Is(err, DecryptionTimeout), errors.Is(err, EncryptionTimeout):
		return "The cipher backend did not answer in time. Increase --timeout or try --backend native"
	case errors.Is(err, EmptyPlaintext), errors.Is(err, DecryptionFailed):
		return "The record is corrupted or was encrypted under a different master key"
	case errors.Is(err, EncryptionFailed):
		return "Check that the secrets directory is writable"
	}
	return ""
}
