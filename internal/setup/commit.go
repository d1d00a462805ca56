package setup

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/systmms/relsetup/internal/config"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/npmrc"
	"github.com/systmms/relsetup/internal/providers/npm"
)

// ReleaseTool is the package pinned into devDependencies.
const ReleaseTool = "semantic-release"

// ReleaseScript is the scripts entry that runs a release.
const ReleaseScript = "semantic-release"

// ManifestCommitter applies the release settings and saves the manifest.
type ManifestCommitter struct {
	Store manifest.Store
	// Registry is queried for the release tool's dist-tags.
	Registry string
}

// NewCommitter saves through store and looks versions up on the public
// registry.
func NewCommitter(store manifest.Store) *ManifestCommitter {
	return &ManifestCommitter{Store: store, Registry: npm.DefaultRegistry}
}

// Commit implements Committer. A failed version lookup only drops the
// devDependencies pin; invalid release fields and write failures are
// fatal. The package name is left as found.
func (c *ManifestCommitter) Commit(ctx context.Context, m *manifest.Manifest, sc *Context) error {
	before, err := m.Bytes()
	if err != nil {
		return err
	}

	version, err := c.releaseVersion(ctx, sc)
	if err != nil {
		sc.Log.Warn("Could not get latest `%s` version.", ReleaseTool)
		sc.Log.Debug("%v", err)
	}

	Apply(m, sc, version)

	if err := manifest.ValidateRelease(m); err != nil {
		return err
	}
	after, err := m.Bytes()
	if err != nil {
		return err
	}
	if sc.Log.DebugEnabled() {
		sc.Log.Debug("package.json changes:\n%s", manifest.Diff(before, after))
	}

	sc.Log.Debug("Writing `package.json`.")
	if err := c.Store.Save(m); err != nil {
		return err
	}
	sc.Log.Info("Done.")
	return nil
}

func (c *ManifestCommitter) releaseVersion(ctx context.Context, sc *Context) (string, error) {
	tags, err := sc.Clients.Npm(c.Registry).DistTags(ctx, ReleaseTool)
	if err != nil {
		return "", err
	}
	raw, ok := tags[sc.Options.Tag]
	if !ok {
		return "", fmt.Errorf("dist-tag %q not found for %s", sc.Options.Tag, ReleaseTool)
	}
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return "", fmt.Errorf("dist-tag %q points at invalid version %q: %w", sc.Options.Tag, raw, err)
	}
	return v.String(), nil
}

// Apply makes the release edits. Applying twice yields the same document.
func Apply(m *manifest.Manifest, sc *Context, version string) {
	root := m.Root()

	if sc.Options.DevVersion {
		root.Set("version", config.DevVersion)
	} else {
		root.Delete("version")
	}

	m.SetPath(ReleaseScript, "scripts", "semantic-release")

	if _, ok := root.Get("repository"); !ok && sc.Repository.RemoteURL != "" {
		repo := manifest.NewObject()
		repo.Set("type", "git")
		repo.Set("url", sc.Repository.RemoteURL)
		root.Set("repository", repo)
	}

	if sc.Repository.IsPrivate && npmrc.Scope(m.Name()) != "" {
		if _, ok := m.Lookup("publishConfig", "access"); !ok {
			m.SetPath("restricted", "publishConfig", "access")
		}
	}

	if version != "" {
		m.SetPath("^"+version, "devDependencies", ReleaseTool)
	}
}
