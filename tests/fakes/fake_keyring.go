package fakes

import (
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/systmms/dsvault/internal/keys"
)

// FakeKeyringClient is an in-memory test double for keys.KeyringClient.
type FakeKeyringClient struct {
	mu sync.Mutex

	// Secrets is a map of service -> account -> value
	Secrets map[string]map[string]string

	// GetErr is returned by Get() if set (overrides Secrets lookup)
	GetErr error

	// SetErr is returned by Set() if set
	SetErr error

	gets int
}

// NewFakeKeyringClient creates an empty fake keyring.
func NewFakeKeyringClient() *FakeKeyringClient {
	return &FakeKeyringClient{Secrets: make(map[string]map[string]string)}
}

// SetSecret adds a secret to the fake keyring.
func (f *FakeKeyringClient) SetSecret(service, account, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(service, account, value)
}

func (f *FakeKeyringClient) put(service, account, value string) {
	if f.Secrets == nil {
		f.Secrets = make(map[string]map[string]string)
	}
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string]string)
	}
	f.Secrets[service][account] = value
}

// Get retrieves a secret, returning keyring.ErrNotFound when absent.
func (f *FakeKeyringClient) Get(service, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	if f.GetErr != nil {
		return "", f.GetErr
	}
	if accounts, ok := f.Secrets[service]; ok {
		if value, ok := accounts[account]; ok {
			return value, nil
		}
	}
	return "", keyring.ErrNotFound
}

// Set stores a secret.
func (f *FakeKeyringClient) Set(service, account, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetErr != nil {
		return f.SetErr
	}
	f.put(service, account, secret)
	return nil
}

// GetCalls returns how many times Get was called.
func (f *FakeKeyringClient) GetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

var _ keys.KeyringClient = (*FakeKeyringClient)(nil)
