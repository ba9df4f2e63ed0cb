// Package cipher implements the symmetric encryption boundary used by the
// secret store.
//
// Records use the OpenSSL "enc" container: the 8-byte magic "Salted__", an
// 8-byte random salt, then AES-256-CBC ciphertext with PKCS#7 padding, all
// base64-armored in 64-column lines. The key and IV are derived from the
// passphrase and salt with either the legacy EVP_BytesToKey scheme (what
// `openssl enc -aes-256-cbc -a -salt` does by default) or PBKDF2.
//
// Two backends produce and consume that format:
//
//   - Native performs the work in-process with crypto/aes.
//   - OpenSSL pipes data through the openssl binary.
//
// Files written by one backend are readable by the other.
package cipher

import (
	"context"
	"fmt"
	"strings"
)

// Backend encrypts and decrypts armored records under a passphrase.
// Implementations must be safe for concurrent use and should honour ctx.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Encrypt returns the armored ciphertext of plaintext under passphrase
	// using a fresh random salt.
	Encrypt(ctx context.Context, plaintext, passphrase []byte) ([]byte, error)

	// Decrypt returns the plaintext of an armored record.
	Decrypt(ctx context.Context, armored, passphrase []byte) ([]byte, error)
}

// KDF selects how the key and IV are derived from the passphrase.
type KDF string

const (
	// KDFLegacy is OpenSSL's EVP_BytesToKey with SHA-256 and one round.
	KDFLegacy KDF = "legacy"
	// KDFPBKDF2 is PBKDF2-HMAC-SHA256, as `openssl enc -pbkdf2`.
	KDFPBKDF2 KDF = "pbkdf2"
)

// DefaultPBKDF2Iterations matches the openssl enc default for -pbkdf2.
const DefaultPBKDF2Iterations = 10000

// ParseKDF validates a KDF name. An empty string selects KDFLegacy.
func ParseKDF(s string) (KDF, error) {
	switch KDF(strings.ToLower(strings.TrimSpace(s))) {
	case "", KDFLegacy:
		return KDFLegacy, nil
	case KDFPBKDF2:
		return KDFPBKDF2, nil
	}
	return "", fmt.Errorf("unknown key derivation %q (want %q or %q)", s, KDFLegacy, KDFPBKDF2)
}

// Options configures key derivation for either backend.
type Options struct {
	KDF        KDF
	Iterations int // PBKDF2 only; DefaultPBKDF2Iterations when zero
}

func (o Options) iterations() int {
	if o.Iterations <= 0 {
		return DefaultPBKDF2Iterations
	}
	return o.Iterations
}

// FormatError reports a structurally invalid record or a failed unpad.
// The message mirrors what openssl prints for the same condition.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}
