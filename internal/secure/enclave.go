package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when reading a buffer after Destroy.
var ErrDestroyed = errors.New("secure buffer destroyed")

// SecureBuffer provides memory-safe storage for sensitive data.
// It wraps memguard.Enclave so the value is encrypted at rest in memory.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	empty     bool
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from secret bytes.
// memguard wipes the source slice, so callers must not reuse data.
func NewSecureBuffer(data []byte) *SecureBuffer {
	if len(data) == 0 {
		// memguard refuses empty enclaves
		return &SecureBuffer{empty: true}
	}
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the protected data into a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.empty {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Reveal returns a plaintext copy of the secret.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	if s.empty {
		return "", nil
	}
	return string(locked.Bytes()), nil
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// It is idempotent.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// Purge wipes all memguard-managed memory. Call once at process exit.
func Purge() {
	memguard.Purge()
}
