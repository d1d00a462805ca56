// Package circleci is a client for the CircleCI v1.1 project API plus the
// project's .circleci/config.yml.
package circleci

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/systmms/relsetup/internal/transport"
)

// DefaultEndpoint is the v1.1 API root.
const DefaultEndpoint = "https://circleci.com/api/v1.1"

// TokenLength is the length of a personal API token.
const TokenLength = 40

// Client operates on one GitHub project.
type Client struct {
	api     *transport.Client
	project string
}

// New creates a client for owner/name authenticated with token.
func New(endpoint, token, owner, name string, opts ...transport.Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	opts = append([]transport.Option{transport.WithQuery("circle-token", token)}, opts...)
	return &Client{
		api:     transport.New("circleci", endpoint, opts...),
		project: fmt.Sprintf("/project/github/%s/%s", owner, name),
	}
}

// Follow starts building the project. Following twice is not an error.
func (c *Client) Follow(ctx context.Context) error {
	_, err := c.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: c.project + "/follow"})
	return err
}

// SetEnvVar adds or overwrites a project environment variable.
func (c *Client) SetEnvVar(ctx context.Context, name, value string) error {
	_, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   c.project + "/envvar",
		Body:   map[string]string{"name": name, "value": value},
	})
	return err
}

// ConfigPath is the config file location under dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ".circleci", "config.yml")
}

// ConfigExists reports whether dir already has a CircleCI config.
func ConfigExists(dir string) bool {
	_, err := os.Stat(ConfigPath(dir))
	return err == nil
}

type runStep struct {
	Run struct {
		Name    string `yaml:"name"`
		Command string `yaml:"command"`
	} `yaml:"run"`
}

func newRunStep(name, command string) runStep {
	var s runStep
	s.Run.Name = name
	s.Run.Command = command
	return s
}

// Config is the generated release pipeline.
type Config struct {
	Version int            `yaml:"version"`
	Jobs    map[string]Job `yaml:"jobs"`
}

// Job is a single CircleCI job.
type Job struct {
	Docker []Image       `yaml:"docker"`
	Steps  []interface{} `yaml:"steps"`
}

// Image is a docker executor image.
type Image struct {
	Image string `yaml:"image"`
}

// ReleaseConfig returns a build job that installs and runs semantic-release.
func ReleaseConfig() Config {
	return Config{
		Version: 2,
		Jobs: map[string]Job{
			"build": {
				Docker: []Image{{Image: "circleci/node:latest"}},
				Steps: []interface{}{
					"checkout",
					newRunStep("install", "npm install"),
					newRunStep("release", "npm run semantic-release || true"),
				},
			},
		},
	}
}

// WriteConfig writes ReleaseConfig to dir, creating .circleci when needed.
func WriteConfig(dir string) error {
	data, err := yaml.Marshal(ReleaseConfig())
	if err != nil {
		return fmt.Errorf("failed to encode circleci config: %w", err)
	}
	path := ConfigPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
