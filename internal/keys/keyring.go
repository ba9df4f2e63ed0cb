package keys

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	dverrors "github.com/systmms/dsvault/internal/errors"
)

// Default keyring coordinates for the master key.
const (
	DefaultKeyringService = "dsvault"
	DefaultKeyringAccount = "master-key"
)

// KeyringClient is the subset of the OS keyring the provider needs.
// Tests substitute a fake.
type KeyringClient interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
}

// systemKeyring talks to the platform keyring (macOS Keychain, Secret
// Service, Windows Credential Manager).
type systemKeyring struct{}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

// KeyringProvider reads the master passphrase from the OS keyring.
type KeyringProvider struct {
	service string
	account string
	client  KeyringClient
}

// NewKeyringProvider creates a provider backed by the system keyring.
func NewKeyringProvider(service, account string) *KeyringProvider {
	return NewKeyringProviderWithClient(service, account, systemKeyring{})
}

// NewKeyringProviderWithClient creates a keyring provider with a custom client.
// This is primarily for testing.
func NewKeyringProviderWithClient(service, account string, client KeyringClient) *KeyringProvider {
	if service == "" {
		service = DefaultKeyringService
	}
	if account == "" {
		account = DefaultKeyringAccount
	}
	return &KeyringProvider{service: service, account: account, client: client}
}

// Location describes where the key lives, for messages.
func (p *KeyringProvider) Location() string {
	return "keyring:" + p.service + "/" + p.account
}

// MasterKey fetches and trims the keyring entry.
func (p *KeyringProvider) MasterKey() (string, error) {
	value, err := p.client.Get(p.service, p.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", &dverrors.Error{Kind: dverrors.KeyNotFound, Op: "key", Path: p.Location()}
		}
		return "", &dverrors.Error{Kind: dverrors.KeyReadError, Op: "key", Path: p.Location(), Err: err}
	}

	key := strings.TrimSpace(value)
	if key == "" {
		return "", &dverrors.Error{Kind: dverrors.KeyEmpty, Op: "key", Path: p.Location()}
	}
	return key, nil
}

// Store saves key in the keyring, replacing any existing entry only when
// overwrite is set.
func (p *KeyringProvider) Store(key string, overwrite bool) error {
	if strings.TrimSpace(key) == "" {
		return &dverrors.Error{Kind: dverrors.KeyEmpty, Op: "key", Path: p.Location()}
	}
	if !overwrite {
		if existing, err := p.client.Get(p.service, p.account); err == nil && strings.TrimSpace(existing) != "" {
			return dverrors.UserError{
				Message:    "Master key already exists in " + p.Location(),
				Suggestion: "Use --force to replace it. Secrets encrypted under the old key become unreadable",
			}
		}
	}
	if err := p.client.Set(p.service, p.account, key); err != nil {
		return &dverrors.Error{Kind: dverrors.KeyReadError, Op: "key", Path: p.Location(), Err: err}
	}
	return nil
}

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*KeyringProvider)(nil)
)
