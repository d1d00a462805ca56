// Package travis is a client for the Travis CI v2 API.
package travis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/relsetup/internal/transport"
)

// Public endpoints.
const (
	OrgEndpoint = "https://api.travis-ci.org"
	ProEndpoint = "https://api.travis-ci.com"
)

const mediaType = "application/vnd.travis-ci.2.1+json"

// Client is a Travis CI API client.
type Client struct {
	api   *transport.Client
	token string
}

// New creates a client rooted at endpoint.
func New(endpoint string, opts ...transport.Option) *Client {
	opts = append([]transport.Option{transport.WithHeader("Accept", mediaType)}, opts...)
	return &Client{api: transport.New("travis", endpoint, opts...)}
}

// Endpoint returns the API root.
func (c *Client) Endpoint() string {
	return c.api.Base()
}

// SetAccessToken uses an existing Travis access token.
func (c *Client) SetAccessToken(token string) {
	c.token = token
}

// HasAccessToken reports whether the client is authenticated.
func (c *Client) HasAccessToken() bool {
	return c.token != ""
}

func (c *Client) do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	if c.token != "" {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("Authorization", "token "+c.token)
	}
	return c.api.Do(ctx, req)
}

// AuthGitHub exchanges a GitHub token for a Travis access token.
func (c *Client) AuthGitHub(ctx context.Context, githubToken string) error {
	resp, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/github",
		Body:   map[string]string{"github_token": githubToken},
	})
	if err != nil {
		return err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := resp.JSON(&out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("travis returned no access token")
	}
	c.token = out.AccessToken
	return nil
}

// Sync starts an account sync with GitHub.
func (c *Client) Sync(ctx context.Context) error {
	_, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: "/users/sync"})
	return err
}

// IsSyncing reports whether the account sync is still running.
func (c *Client) IsSyncing(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, transport.Request{Path: "/users"})
	if err != nil {
		return false, err
	}
	var out struct {
		User struct {
			IsSyncing bool `json:"is_syncing"`
		} `json:"user"`
	}
	if err := resp.JSON(&out); err != nil {
		return false, err
	}
	return out.User.IsSyncing, nil
}

// RepoID looks up the Travis id of owner/name.
func (c *Client) RepoID(ctx context.Context, owner, name string) (int64, error) {
	resp, err := c.do(ctx, transport.Request{Path: fmt.Sprintf("/repos/%s/%s", owner, name)})
	if err != nil {
		return 0, err
	}
	var out struct {
		Repo struct {
			ID int64 `json:"id"`
		} `json:"repo"`
	}
	if err := resp.JSON(&out); err != nil {
		return 0, err
	}
	if out.Repo.ID == 0 {
		return 0, fmt.Errorf("travis returned no repository id for %s/%s", owner, name)
	}
	return out.Repo.ID, nil
}

// ActivateHook enables builds for the repository.
func (c *Client) ActivateHook(ctx context.Context, repoID int64) error {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/hooks/" + strconv.FormatInt(repoID, 10),
		Body:   map[string]interface{}{"hook": map[string]bool{"active": true}},
	})
	if err != nil {
		return err
	}
	var out struct {
		Result bool `json:"result"`
	}
	if err := resp.JSON(&out); err != nil {
		return err
	}
	if !out.Result {
		return fmt.Errorf("could not enable hook")
	}
	return nil
}

// EnvVar is a repository setting.
type EnvVar struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Public bool   `json:"public"`
}

// EnvVars lists the repository's environment variables.
func (c *Client) EnvVars(ctx context.Context, repoID int64) ([]EnvVar, error) {
	resp, err := c.do(ctx, transport.Request{
		Path:  "/settings/env_vars",
		Query: url.Values{"repository_id": {strconv.FormatInt(repoID, 10)}},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		EnvVars []EnvVar `json:"env_vars"`
	}
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return out.EnvVars, nil
}

// SetEnvVar creates the private variable name, or updates it in place when
// it already exists.
func (c *Client) SetEnvVar(ctx context.Context, repoID int64, name, value string) error {
	existing, err := c.EnvVars(ctx, repoID)
	if err != nil {
		return err
	}

	method, path := http.MethodPost, "/settings/env_vars"
	for _, v := range existing {
		if v.Name == name && v.ID != "" {
			method, path = http.MethodPatch, "/settings/env_vars/"+v.ID
			break
		}
	}

	_, err = c.do(ctx, transport.Request{
		Method: method,
		Path:   path,
		Query:  url.Values{"repository_id": {strconv.FormatInt(repoID, 10)}},
		Body:   map[string]EnvVar{"env_var": {Name: name, Value: value, Public: false}},
	})
	return err
}

// ErrNoAccessToken means the travis CLI config has no token for the endpoint.
var ErrNoAccessToken = errors.New("no travis access token configured")

// ConfigPath is the travis CLI configuration file under home.
func ConfigPath(home string) string {
	return filepath.Join(home, ".travis", "config.yml")
}

type cliConfig struct {
	Endpoints map[string]struct {
		AccessToken string `yaml:"access_token"`
	} `yaml:"endpoints"`
}

// LoadAccessToken reads the token the travis CLI stored for endpoint.
func LoadAccessToken(home, endpoint string) (string, error) {
	data, err := os.ReadFile(ConfigPath(home))
	if err != nil {
		return "", fmt.Errorf("failed to read travis config: %w", err)
	}
	var cfg cliConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("failed to parse travis config: %w", err)
	}
	key := strings.TrimRight(endpoint, "/") + "/"
	if ep, ok := cfg.Endpoints[key]; ok && ep.AccessToken != "" {
		return ep.AccessToken, nil
	}
	return "", ErrNoAccessToken
}
