package fakes

import (
	"github.com/zalando/go-keyring"

	"github.com/systmms/relsetup/internal/vault"
)

// FakeKeyringClient is a test double for vault.KeyringClient
type FakeKeyringClient struct {
	// Secrets is a map of service -> account -> value
	Secrets map[string]map[string]string

	// Available controls whether the keychain reports as available
	Available bool

	// Headless controls whether the environment is reported as headless
	Headless bool

	// GetErr is returned by Get() if set (overrides Secrets lookup)
	GetErr error

	// SetErr is returned by Set() if set
	SetErr error
}

// NewFakeKeyringClient creates a new fake keyring client with defaults
func NewFakeKeyringClient() *FakeKeyringClient {
	return &FakeKeyringClient{
		Secrets:   make(map[string]map[string]string),
		Available: true,
	}
}

// SetSecret adds a secret to the fake keychain
func (f *FakeKeyringClient) SetSecret(service, account, value string) {
	if f.Secrets == nil {
		f.Secrets = make(map[string]map[string]string)
	}
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string]string)
	}
	f.Secrets[service][account] = value
}

// Get retrieves a secret from the fake keychain
func (f *FakeKeyringClient) Get(service, account string) (string, error) {
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

// Set stores a secret in the fake keychain
func (f *FakeKeyringClient) Set(service, account, secret string) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.SetSecret(service, account, secret)
	return nil
}

// IsAvailable returns whether keychain is available
func (f *FakeKeyringClient) IsAvailable() bool {
	return f.Available
}

// IsHeadless returns whether running in headless environment
func (f *FakeKeyringClient) IsHeadless() bool {
	return f.Headless
}

var _ vault.KeyringClient = (*FakeKeyringClient)(nil)
