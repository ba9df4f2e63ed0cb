package fakes

import (
	"sync"

	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/keys"
)

// FakeKeyProvider is a keys.Provider that counts reads. An empty Key with no
// Err behaves like a missing key file.
type FakeKeyProvider struct {
	mu    sync.Mutex
	key   string
	err   error
	calls int
}

// NewFakeKeyProvider returns a provider serving key.
func NewFakeKeyProvider(key string) *FakeKeyProvider {
	return &FakeKeyProvider{key: key}
}

// MasterKey returns the configured key or error.
func (f *FakeKeyProvider) MasterKey() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return "", f.err
	}
	if f.key == "" {
		return "", &dverrors.Error{Kind: dverrors.KeyNotFound, Op: "key", Path: "fake"}
	}
	return f.key, nil
}

// SetKey replaces the served key.
func (f *FakeKeyProvider) SetKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
}

// SetError makes every read fail with err.
func (f *FakeKeyProvider) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns how many times MasterKey was called.
func (f *FakeKeyProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ keys.Provider = (*FakeKeyProvider)(nil)
