// Package keys resolves the master passphrase that every secret record is
// encrypted under.
//
// Providers never cache the key: each call re-reads its source so that a key
// replaced on disk (or in the keyring) takes effect on the next operation
// without a restart.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dverrors "github.com/systmms/dsvault/internal/errors"
)

// DefaultKeyFile is the key file name inside the base directory.
const DefaultKeyFile = ".encryption_key"

// Provider returns the current master passphrase.
type Provider interface {
	MasterKey() (string, error)
}

// FileProvider reads the master passphrase from a file.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider for the key file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Path returns the key file location.
func (p *FileProvider) Path() string {
	return p.path
}

// MasterKey reads and trims the key file.
func (p *FileProvider) MasterKey() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &dverrors.Error{Kind: dverrors.KeyNotFound, Op: "key", Path: p.path}
		}
		return "", &dverrors.Error{Kind: dverrors.KeyReadError, Op: "key", Path: p.path, Err: err}
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", &dverrors.Error{Kind: dverrors.KeyEmpty, Op: "key", Path: p.path}
	}
	return key, nil
}

// Generate returns a new random passphrase: 32 bytes, base64 encoded.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// WriteFile stores key at path with owner-only permissions. It refuses to
// replace an existing file unless overwrite is set.
func WriteFile(path, key string, overwrite bool) error {
	if strings.TrimSpace(key) == "" {
		return &dverrors.Error{Kind: dverrors.KeyEmpty, Op: "key", Path: path}
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return dverrors.UserError{
				Message:    fmt.Sprintf("Master key already exists at %s", path),
				Suggestion: "Use --force to replace it. Secrets encrypted under the old key become unreadable",
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write master key: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0o600)
}
