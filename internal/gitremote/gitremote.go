// Package gitremote finds and normalizes the repository's origin URL.
package gitremote

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNoOrigin means the working tree has no usable origin remote.
var ErrNoOrigin = errors.New("no origin remote configured")

// OriginURL returns the first URL of the origin remote of the repository
// containing dir.
func OriginURL(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open git repository: %w", err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", ErrNoOrigin
		}
		return "", fmt.Errorf("failed to read origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", ErrNoOrigin
	}
	return urls[0], nil
}

// user@host:path, the scp-like syntax git accepts for ssh
var scpLike = regexp.MustCompile(`^(?:[^@/]+@)?([^:/]+):([^/].*)$`)

// Normalize rewrites any git remote form into an https web URL without
// credentials, a trailing slash or a .git suffix.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	if strings.HasPrefix(s, "github:") {
		s = "https://github.com/" + strings.TrimPrefix(s, "github:")
	}

	if !strings.Contains(s, "://") {
		if m := scpLike.FindStringSubmatch(s); m != nil {
			s = "https://" + m[1] + "/" + m[2]
		}
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	}
	switch u.Scheme {
	case "ssh", "git", "git+ssh":
		u.Scheme = "https"
		u.Host = u.Hostname()
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), ".git")
	u.RawPath = ""
	return u.String()
}

// Slug identifies a GitHub repository.
type Slug struct {
	Owner string
	Name  string
}

func (s Slug) String() string {
	return s.Owner + "/" + s.Name
}

// ParseGitHub extracts the slug from a normalized github.com URL.
func ParseGitHub(normalized string) (*Slug, bool) {
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "github.com" {
		return nil, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return &Slug{Owner: parts[0], Name: parts[1]}, true
}

// ParseSlug extracts owner/name from any normalized host URL, used for
// Enterprise installs.
func ParseSlug(normalized string) (*Slug, bool) {
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return &Slug{Owner: parts[0], Name: parts[1]}, true
}

// BaseURL returns scheme://host of a normalized URL.
func BaseURL(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
