package cipher

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strconv"
	"strings"

	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
	pkgexec "github.com/systmms/dsvault/pkg/exec"
)

// PassphraseEnv is the variable the openssl child reads the passphrase from.
// Passing it through the environment keeps it out of the process table.
const PassphraseEnv = "DSVAULT_PASSPHRASE"

// OpenSSL implements Backend by running `openssl enc`.
type OpenSSL struct {
	binary   string
	opts     Options
	logger   *logging.Logger
	executor pkgexec.CommandExecutor
}

// NewOpenSSL creates a backend that runs the given openssl binary
// ("openssl" from PATH when empty).
func NewOpenSSL(binary string, opts Options, logger *logging.Logger) *OpenSSL {
	return NewOpenSSLWithExecutor(binary, opts, logger, pkgexec.DefaultExecutor())
}

// NewOpenSSLWithExecutor creates an openssl backend with a custom executor.
// This is primarily for testing, allowing command execution to be mocked.
func NewOpenSSLWithExecutor(binary string, opts Options, logger *logging.Logger, executor pkgexec.CommandExecutor) *OpenSSL {
	if binary == "" {
		binary = "openssl"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &OpenSSL{
		binary:   binary,
		opts:     opts,
		logger:   logger,
		executor: executor,
	}
}

// Name returns the backend name.
func (o *OpenSSL) Name() string {
	return "openssl"
}

// Validate checks that the openssl binary can be found.
func (o *OpenSSL) Validate(ctx context.Context) error {
	if _, err := pkgexec.LookPath(o.binary); err != nil {
		return dverrors.WrapCommandNotFound(o.binary, err)
	}
	return nil
}

// Encrypt implements Backend.
func (o *OpenSSL) Encrypt(ctx context.Context, plaintext, passphrase []byte) ([]byte, error) {
	return o.run(ctx, false, plaintext, passphrase)
}

// Decrypt implements Backend.
func (o *OpenSSL) Decrypt(ctx context.Context, armored, passphrase []byte) ([]byte, error) {
	return o.run(ctx, true, armored, passphrase)
}

// args builds the enc invocation. The key derivation flags are explicit so
// the result does not depend on the openssl version's defaults.
func (o *OpenSSL) args(decrypt bool) []string {
	args := []string{"enc"}
	if decrypt {
		args = append(args, "-d")
	}
	args = append(args, "-aes-256-cbc", "-a", "-salt", "-md", "sha256")
	if o.opts.KDF == KDFPBKDF2 {
		args = append(args, "-pbkdf2", "-iter", strconv.Itoa(o.opts.iterations()))
	}
	return append(args, "-pass", "env:"+PassphraseEnv)
}

func (o *OpenSSL) run(ctx context.Context, decrypt bool, input, passphrase []byte) ([]byte, error) {
	req := pkgexec.Request{
		Name:  o.binary,
		Args:  o.args(decrypt),
		Stdin: input,
		Env:   []string{PassphraseEnv + "=" + string(passphrase)},
	}

	o.logger.Debug("Running %s %s", o.binary, strings.Join(req.Args, " "))
	stdout, stderr, err := o.executor.Execute(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, osexec.ErrNotFound) {
			return nil, dverrors.WrapCommandNotFound(o.binary, err)
		}

		diag := strings.TrimSpace(logging.Redact(string(stderr), []string{string(passphrase)}))
		if diag == "" {
			diag = err.Error()
		}
		exitCode := 0
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, dverrors.CommandError{
			Command:  fmt.Sprintf("%s %s", o.binary, strings.Join(req.Args[:2], " ")),
			ExitCode: exitCode,
			Message:  firstLine(diag),
		}
	}
	return stdout, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var _ Backend = (*OpenSSL)(nil)
