package vault

import (
	"context"
	"sync"

	"github.com/systmms/relsetup/internal/secure"
)

// Memory keeps secrets for the lifetime of the process, encrypted in memory.
type Memory struct {
	mu      sync.Mutex
	secrets map[string]*secure.SecureBuffer
}

// NewMemory creates an empty memory vault
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]*secure.SecureBuffer)}
}

func (m *Memory) Name() string { return BackendMemory }

func (m *Memory) Get(_ context.Context, service, principal string) (string, error) {
	m.mu.Lock()
	buf, ok := m.secrets[service+"/"+principal]
	m.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}
	return buf.Reveal()
}

func (m *Memory) Set(_ context.Context, service, principal, secret string) error {
	key := service + "/" + principal
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.secrets[key]; ok {
		old.Destroy()
	}
	m.secrets[key] = secure.NewSecureBuffer([]byte(secret))
	return nil
}
