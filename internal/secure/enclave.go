package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is read.
var ErrDestroyed = errors.New("secure buffer destroyed")

// SecureBuffer provides memory-safe storage for a decrypted secret.
// It wraps memguard.Enclave so the value is encrypted while it sits in the
// cache and is only briefly exposed in a locked buffer when read.
type SecureBuffer struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
	size    int
	// destroyed tracks if this buffer has been destroyed to allow
	// idempotent Destroy() calls and prevent use after destroy
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from secret bytes.
// memguard wipes data after copying it, so pass a slice you own.
// Empty input yields a valid buffer that reveals "".
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	size := len(data)
	// NewEnclave returns nil for empty input; Reveal handles that case.
	enclave := memguard.NewEnclave(data)

	return &SecureBuffer{
		enclave: enclave,
		size:    size,
	}, nil
}

// NewSecureString copies s into a protected buffer.
func NewSecureString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done
// to securely wipe the plaintext from memory.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.enclave == nil {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Reveal returns the protected value as a string. The locked buffer used to
// read it is wiped before returning.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Size returns the length of the protected value.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// The enclave's ciphertext is left to the garbage collector; its key lives
// in memguard's protected region and is wiped by memguard.Purge at exit.
//
// This method is idempotent - calling it multiple times is safe.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (s *SecureBuffer) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
