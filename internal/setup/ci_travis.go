package setup

import (
	"context"
	"fmt"
	"time"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/providers/travis"
)

type travisProvider struct {
	endpoint string
}

func (p *travisProvider) Setup(ctx context.Context, sc *Context) error {
	if err := requireSlug(sc); err != nil {
		return err
	}
	slug := sc.Repository.Slug
	client := sc.Clients.Travis(p.endpoint)

	if token, err := travis.LoadAccessToken(sc.Options.Home, p.endpoint); err == nil {
		sc.protectCredentials(token)
		client.SetAccessToken(token)
	} else {
		sc.Log.Warn("Could not load travis config for endpoint.")
		sc.Log.Debug("%v", err)
		if err := client.AuthGitHub(ctx, sc.HostAuth.Token); err != nil {
			sc.Log.Error("Could not login to Travis CI.")
			return dserrors.ProviderError("travis", "login", err)
		}
	}

	if err := client.Sync(ctx); err != nil {
		sc.Log.Debug("travis sync request failed: %v", err)
	}
	if err := p.waitSync(ctx, sc, client); err != nil {
		return err
	}

	id, err := client.RepoID(ctx, slug.Owner, slug.Name)
	if err != nil {
		sc.Log.Error("Could not get repository on Travis CI.")
		return dserrors.ProviderError("travis", "repository lookup", err)
	}
	sc.CI.Travis = &TravisState{Endpoint: p.endpoint, RepoID: id}

	if err := client.ActivateHook(ctx, id); err != nil {
		sc.Log.Error("Could not create Travis CI hook.")
		return dserrors.ProviderError("travis", "hook activation", err)
	}
	sc.Log.Info("Successfully created Travis CI hook.")

	for _, v := range []struct{ name, value string }{
		{"GH_TOKEN", sc.HostAuth.Token},
		{"NPM_TOKEN", sc.RegistryAuth.Token},
	} {
		if err := client.SetEnvVar(ctx, id, v.name, v.value); err != nil {
			sc.Log.Error("Could not set environment variable on Travis CI.")
			return dserrors.ProviderError("travis", "setting "+v.name, err)
		}
	}
	sc.Log.Info("Successfully set environment variables on Travis CI.")
	return nil
}

// waitSync polls until the account sync finishes, MaxSyncPolls is reached
// or ctx ends.
func (p *travisProvider) waitSync(ctx context.Context, sc *Context, client *travis.Client) error {
	for poll := 0; poll < sc.Timing.MaxSyncPolls; poll++ {
		sc.Metrics.SyncPoll()
		syncing, err := client.IsSyncing(ctx)
		if err == nil && !syncing {
			return nil
		}

		delay := sc.Timing.SyncInterval
		if err != nil {
			sc.Log.Debug("travis sync status failed: %v", err)
			delay = sc.Timing.SyncErrorInterval
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("travis account sync did not finish after %d polls", sc.Timing.MaxSyncPolls)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
