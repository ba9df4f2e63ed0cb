package fakes

import (
	"context"
	"sync"

	"github.com/systmms/dsvault/internal/cipher"
)

// CountingBackend wraps a cipher.Backend and counts calls. Setting
// DecryptErr or EncryptErr short-circuits the wrapped backend, and
// DecryptResult overrides a successful decryption's output.
type CountingBackend struct {
	Inner cipher.Backend

	mu            sync.Mutex
	decrypts      int
	encrypts      int
	DecryptErr    error
	EncryptErr    error
	DecryptResult []byte
}

// NewCountingBackend wraps the native backend with default options.
func NewCountingBackend() *CountingBackend {
	return &CountingBackend{Inner: cipher.NewNative(cipher.Options{})}
}

// Name identifies the fake.
func (b *CountingBackend) Name() string {
	return "counting"
}

// Encrypt records the call and delegates.
func (b *CountingBackend) Encrypt(ctx context.Context, plaintext, passphrase []byte) ([]byte, error) {
	b.mu.Lock()
	b.encrypts++
	err := b.EncryptErr
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return b.Inner.Encrypt(ctx, plaintext, passphrase)
}

// Decrypt records the call and delegates.
func (b *CountingBackend) Decrypt(ctx context.Context, armored, passphrase []byte) ([]byte, error) {
	b.mu.Lock()
	b.decrypts++
	err, override := b.DecryptErr, b.DecryptResult
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	out, err := b.Inner.Decrypt(ctx, armored, passphrase)
	if err != nil {
		return nil, err
	}
	if override != nil {
		return append([]byte(nil), override...), nil
	}
	return out, nil
}

// Decrypts returns the number of Decrypt calls.
func (b *CountingBackend) Decrypts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decrypts
}

// Encrypts returns the number of Encrypt calls.
func (b *CountingBackend) Encrypts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encrypts
}

// BlockingBackend never answers until Release is called, and ignores its
// context while waiting. It models a wedged external process.
type BlockingBackend struct {
	release chan struct{}
	once    sync.Once
}

// NewBlockingBackend creates a backend that blocks every call.
func NewBlockingBackend() *BlockingBackend {
	return &BlockingBackend{release: make(chan struct{})}
}

// Name identifies the fake.
func (b *BlockingBackend) Name() string {
	return "blocking"
}

// Encrypt blocks until Release.
func (b *BlockingBackend) Encrypt(_ context.Context, plaintext, _ []byte) ([]byte, error) {
	<-b.release
	return plaintext, nil
}

// Decrypt blocks until Release.
func (b *BlockingBackend) Decrypt(_ context.Context, armored, _ []byte) ([]byte, error) {
	<-b.release
	return armored, nil
}

// Release unblocks all pending and future calls.
func (b *BlockingBackend) Release() {
	b.once.Do(func() { close(b.release) })
}

var (
	_ cipher.Backend = (*CountingBackend)(nil)
	_ cipher.Backend = (*BlockingBackend)(nil)
)
