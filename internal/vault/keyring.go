package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/zalando/go-keyring"
)

// Keyring errors
var (
	ErrKeyringUnavailable = errors.New("keychain not supported on this platform")
)

// KeyringClient abstracts OS keychain operations for testing
type KeyringClient interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error

	// IsAvailable returns true if a keychain is available on this platform
	IsAvailable() bool

	// IsHeadless returns true if running in a headless environment
	IsHeadless() bool
}

// KeyringError wraps OS keychain errors with context
type KeyringError struct {
	Op      string // "get" or "set"
	Service string
	Account string
	Err     error
}

func (e *KeyringError) Error() string {
	return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
}

func (e *KeyringError) Unwrap() error {
	return e.Err
}

// Keyring is a Vault backed by the OS keychain
type Keyring struct {
	client KeyringClient
}

// NewKeyring creates a keychain vault using client
func NewKeyring(client KeyringClient) *Keyring {
	return &Keyring{client: client}
}

func (k *Keyring) Name() string { return BackendKeyring }

// Get retrieves a secret from the keychain
func (k *Keyring) Get(_ context.Context, service, principal string) (string, error) {
	secret, err := k.client.Get(service, principal)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &KeyringError{Op: "get", Service: service, Account: principal, Err: err}
	}
	return secret, nil
}

// Set stores or replaces a secret in the keychain
func (k *Keyring) Set(_ context.Context, service, principal, secret string) error {
	if err := k.client.Set(service, principal, secret); err != nil {
		return &KeyringError{Op: "set", Service: service, Account: principal, Err: err}
	}
	return nil
}

// osKeyringClient implements KeyringClient with zalando/go-keyring
type osKeyringClient struct{}

func newPlatformKeyringClient() KeyringClient {
	return osKeyringClient{}
}

func (osKeyringClient) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (osKeyringClient) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (osKeyringClient) IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "openbsd":
		// Secret Service is reached over the session bus
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	default:
		return false
	}
}

func (osKeyringClient) IsHeadless() bool {
	if os.Getenv("SSH_TTY") != "" {
		return true
	}
	if os.Getenv("CI") != "" {
		return true
	}
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	return false
}

var _ KeyringClient = osKeyringClient{}
