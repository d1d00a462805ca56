// Package github talks to the GitHub REST API (github.com or an Enterprise
// install): token creation and validation, repository existence checks, and
// Actions secrets.
package github

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/nacl/box"

	"github.com/systmms/relsetup/internal/transport"
)

// DefaultEndpoint is the public API root.
const DefaultEndpoint = "https://api.github.com"

// OTPHeader carries the two-factor code and, on a 401, the challenge.
const OTPHeader = "X-GitHub-OTP"

// Scopes requested for tokens created with username and password.
var Scopes = []string{"repo", "read:org", "user:email", "repo_deployment", "repo:status", "write:repo_hook"}

// APIEndpoint returns the API root for an Enterprise base URL, or the public
// endpoint when base is empty.
func APIEndpoint(enterpriseBase string) string {
	if enterpriseBase == "" {
		return DefaultEndpoint
	}
	return strings.TrimRight(enterpriseBase, "/") + "/api/v3"
}

// Credentials authenticate one request. Token wins over basic auth.
type Credentials struct {
	Username string
	Password string
	Token    string
	OTP      string
	Note     string // label of a token created with basic auth
}

// Client is a GitHub API client.
type Client struct {
	api *transport.Client
}

// New creates a client rooted at endpoint.
func New(endpoint string, opts ...transport.Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	opts = append([]transport.Option{transport.WithHeader("Accept", "application/vnd.github+json")}, opts...)
	return &Client{api: transport.New("github", endpoint, opts...)}
}

func authHeader(creds Credentials) http.Header {
	h := make(http.Header)
	if creds.Token != "" {
		h.Set("Authorization", "token "+creds.Token)
	} else if creds.Username != "" {
		raw := creds.Username + ":" + creds.Password
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	}
	if creds.OTP != "" {
		h.Set(OTPHeader, creds.OTP)
	}
	return h
}

// Authenticate returns a usable token. A supplied token is validated with
// GET /user; otherwise a new scoped token is created with basic auth.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	if creds.Token != "" {
		if _, err := c.api.Do(ctx, transport.Request{Path: "/user", Header: authHeader(creds)}); err != nil {
			return "", err
		}
		return creds.Token, nil
	}

	resp, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/authorizations",
		Header: authHeader(creds),
		Body: map[string]interface{}{
			"scopes": Scopes,
			"note":   creds.Note,
		},
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("github returned no token")
	}
	return out.Token, nil
}

// IsOTPChallenge reports whether err is a two-factor challenge and, if so,
// the delivery channel named by the server ("app", "sms").
func IsOTPChallenge(err error) (string, bool) {
	resp, ok := transport.ResponseOf(err)
	if !ok || resp.Status != http.StatusUnauthorized {
		return "", false
	}
	v := resp.Header.Get(OTPHeader)
	if !strings.HasPrefix(strings.ToLower(v), "required") {
		return "", false
	}
	channel := ""
	if i := strings.Index(v, ";"); i >= 0 {
		channel = strings.TrimSpace(v[i+1:])
	}
	return channel, true
}

// RepoExists issues a HEAD request against the repository web URL. A non-2xx
// response is reported as false with a nil error.
func (c *Client) RepoExists(ctx context.Context, webURL string) (bool, error) {
	_, err := c.api.Do(ctx, transport.Request{Method: http.MethodHead, Path: webURL})
	if err == nil {
		return true, nil
	}
	if _, ok := transport.ResponseOf(err); ok {
		return false, nil
	}
	return false, err
}

// PublicKey is a repository's Actions secrets key.
type PublicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// ActionsPublicKey fetches the key used to seal repository secrets.
func (c *Client) ActionsPublicKey(ctx context.Context, creds Credentials, owner, repo string) (*PublicKey, error) {
	resp, err := c.api.Do(ctx, transport.Request{
		Path:   fmt.Sprintf("/repos/%s/%s/actions/secrets/public-key", owner, repo),
		Header: authHeader(creds),
	})
	if err != nil {
		return nil, err
	}
	var key PublicKey
	if err := resp.JSON(&key); err != nil {
		return nil, err
	}
	return &key, nil
}

// PutActionsSecret creates or replaces an encrypted repository secret.
func (c *Client) PutActionsSecret(ctx context.Context, creds Credentials, owner, repo, name, sealed, keyID string) error {
	_, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/repos/%s/%s/actions/secrets/%s", owner, repo, name),
		Header: authHeader(creds),
		Body: map[string]string{
			"encrypted_value": sealed,
			"key_id":          keyID,
		},
	})
	return err
}

// SealSecret encrypts value for a base64 Curve25519 public key using an
// anonymous sealed box and returns the base64 ciphertext.
func SealSecret(value, publicKey string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("invalid public key length %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)

	sealed, err := box.SealAnonymous(nil, []byte(value), &key, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
