// Package npm talks to an npm-compatible package registry.
package npm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/systmms/relsetup/internal/transport"
)

// DefaultRegistry is used when nothing else is configured.
const DefaultRegistry = "https://registry.npmjs.org/"

// OTPHeader carries a one-time password on login.
const OTPHeader = "npm-otp"

// LoginRequest is a legacy username/password/email login.
type LoginRequest struct {
	Username string
	Password string
	Email    string
	OTP      string
	// Authenticated sends basic-auth credentials, which the registry
	// requires when the user already exists.
	Authenticated bool
}

// Client is a registry client.
type Client struct {
	api *transport.Client
	now func() time.Time
}

// New creates a client for registry.
func New(registry string, opts ...transport.Option) *Client {
	if registry == "" {
		registry = DefaultRegistry
	}
	return &Client{api: transport.New("npm", registry, opts...), now: time.Now}
}

// Registry returns the registry URL without a trailing slash.
func (c *Client) Registry() string {
	return c.api.Base()
}

// Login exchanges legacy credentials for an auth token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	if req.Username == "" || req.Password == "" {
		return "", fmt.Errorf("username and password are required")
	}

	header := make(http.Header)
	if req.OTP != "" {
		header.Set(OTPHeader, req.OTP)
	}
	if req.Authenticated {
		raw := req.Username + ":" + req.Password
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	}

	id := "org.couchdb.user:" + req.Username
	resp, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/-/user/" + url.PathEscape(id),
		Header: header,
		Body: map[string]interface{}{
			"_id":      id,
			"name":     req.Username,
			"password": req.Password,
			"email":    req.Email,
			"type":     "user",
			"roles":    []string{},
			"date":     c.now().UTC().Format(time.RFC3339),
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
		return "", fmt.Errorf("registry returned no token")
	}
	return out.Token, nil
}

// DistTags returns the dist-tags of pkg.
func (c *Client) DistTags(ctx context.Context, pkg string) (map[string]string, error) {
	resp, err := c.api.Do(ctx, transport.Request{
		Path: "/-/package/" + url.PathEscape(pkg) + "/dist-tags",
	})
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string)
	if err := resp.JSON(&tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// IsOTPChallenge reports whether err asks for a one-time password.
func IsOTPChallenge(err error) bool {
	resp, ok := transport.ResponseOf(err)
	if !ok || resp.Status != http.StatusUnauthorized {
		return false
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("WWW-Authenticate")), "otp") {
		return true
	}
	body := strings.ToLower(string(resp.Body))
	return strings.Contains(body, "one-time pass")
}

// IsConflict reports whether err is a 409 from the user endpoint.
func IsConflict(err error) bool {
	return transport.HasStatus(err, http.StatusConflict)
}
