// Package vault stores credentials between runs, keyed by (service, principal).
//
// Backends: the OS keychain (go-keyring), an in-process memguard store,
// AWS Secrets Manager, and a no-op vault. Callers treat every vault failure
// as non-fatal.
package vault

import (
	"context"
	"errors"
	"fmt"

	dserrors "github.com/systmms/relsetup/internal/errors"
)

// ServicePrefix namespaces every entry this tool writes.
const ServicePrefix = "relsetup"

// ErrNotFound is returned by Get when no secret is stored.
var ErrNotFound = errors.New("secret not found")

// Vault gets and sets a secret for a (service, principal) pair.
type Vault interface {
	Get(ctx context.Context, service, principal string) (string, error)
	Set(ctx context.Context, service, principal, secret string) error
	Name() string
}

// Service returns the namespaced service key, e.g. "relsetup:npm".
func Service(name string) string {
	return ServicePrefix + ":" + name
}

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
	BackendAWS     = "aws"
	BackendNone    = "none"
)

// Options configures backend construction.
type Options struct {
	AWSRegion   string
	AWSPrefix   string
	AWSEndpoint string
	AWSProfile  string

	// Static credentials, used instead of the default chain when both
	// key fields are set.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// Keyring overrides the OS keychain client (tests).
	Keyring KeyringClient
	// AWSClient overrides the Secrets Manager client (tests).
	AWSClient SecretsManagerAPI
}

// New builds the named backend. "auto" picks the OS keychain when one is
// reachable and falls back to the memory vault otherwise.
func New(ctx context.Context, backend string, opts Options) (Vault, error) {
	kc := opts.Keyring
	if kc == nil {
		kc = newPlatformKeyringClient()
	}

	switch backend {
	case "", BackendAuto:
		if kc.IsAvailable() && !kc.IsHeadless() {
			return NewKeyring(kc), nil
		}
		return NewMemory(), nil
	case BackendKeyring:
		if !kc.IsAvailable() {
			return nil, ErrKeyringUnavailable
		}
		return NewKeyring(kc), nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendAWS:
		return NewAWS(ctx, opts)
	case BackendNone:
		return None{}, nil
	default:
		return nil, dserrors.ConfigError{
			Field:      "vault",
			Value:      backend,
			Message:    "unknown vault backend",
			Suggestion: fmt.Sprintf("Use one of: %s, %s, %s, %s, %s", BackendAuto, BackendKeyring, BackendMemory, BackendAWS, BackendNone),
		}
	}
}

// None never stores anything.
type None struct{}

func (None) Get(context.Context, string, string) (string, error) { return "", ErrNotFound }

func (None) Set(context.Context, string, string, string) error { return nil }

func (None) Name() string { return BackendNone }
