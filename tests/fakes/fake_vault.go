package fakes

import (
	"context"
	"sync"

	"github.com/systmms/relsetup/internal/vault"
)

// FakeVault is a recording vault.Vault
type FakeVault struct {
	mu      sync.Mutex
	secrets map[string]string

	GetErr error
	SetErr error

	// Sets records "service/principal" for every successful Set
	Sets []string
}

// NewFakeVault creates an empty recording vault
func NewFakeVault() *FakeVault {
	return &FakeVault{secrets: make(map[string]string)}
}

// Seed stores a secret without recording a Set
func (f *FakeVault) Seed(service, principal, secret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[service+"/"+principal] = secret
}

func (f *FakeVault) Name() string { return "fake" }

func (f *FakeVault) Get(_ context.Context, service, principal string) (string, error) {
	if f.GetErr != nil {
		return "", f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.secrets[service+"/"+principal]
	if !ok {
		return "", vault.ErrNotFound
	}
	return v, nil
}

func (f *FakeVault) Set(_ context.Context, service, principal, secret string) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[service+"/"+principal] = secret
	f.Sets = append(f.Sets, service+"/"+principal)
	return nil
}

var _ vault.Vault = (*FakeVault)(nil)
