package setup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/relsetup/internal/gitremote"
)

func TestRepositoryStep_OriginRemoteScpSyntax(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.pkg.InitGit("git@github.com:org/name.git")
	h.api.reply("HEAD", "/web/org/name", 200, "")
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RepositoryStep{}.Run(context.Background(), m, h.sc))

	assert.Equal(t, "https://github.com/org/name", h.sc.Repository.RemoteURL)
	require.NotNil(t, h.sc.Repository.Slug)
	assert.Equal(t, gitremote.Slug{Owner: "org", Name: "name"}, *h.sc.Repository.Slug)
	assert.False(t, h.sc.Repository.IsPrivate)
	assert.Empty(t, h.renderer.Names())
}

func TestRepositoryStep_ManifestURLWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.pkg.InitGit("git@github.com:other/repo.git")
	h.api.reply("HEAD", "/web/org/name", 200, "")
	m := h.manifest(t, `{"name":"pkg","repository":{"type":"git","url":"git+https://github.com/org/name.git"}}`)

	require.NoError(t, RepositoryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "https://github.com/org/name", h.sc.Repository.RemoteURL)
}

func TestRepositoryStep_UnreachableRepository(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		private string
		wantErr error
	}{
		{name: "private continues", private: "true"},
		{name: "not private is fatal", private: "false", wantErr: ErrRepositoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.renderer.Answer("private", tt.private)
			m := h.manifest(t, `{"name":"pkg","repository":"https://github.com/org/secret"}`)

			err := RepositoryStep{}.Run(context.Background(), m, h.sc)
			assert.Equal(t, 1, h.api.Count("HEAD", "/web/org/secret"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, h.sc.Repository.RemoteURL)
				return
			}
			require.NoError(t, err)
			assert.True(t, h.sc.Repository.IsPrivate)
		})
	}
}

func TestRepositoryStep_Enterprise(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.renderer.Answer("enterprise", "true").Answer("enterprise-url", "")
	m := h.manifest(t, `{"name":"pkg","repository":"git@git.corp.example:team/lib.git"}`)

	require.NoError(t, RepositoryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "https://git.corp.example/team/lib", h.sc.Repository.RemoteURL)
	assert.Equal(t, "https://git.corp.example", h.sc.Repository.EnterpriseEndpoint)
	require.NotNil(t, h.sc.Repository.Slug)
	assert.Equal(t, "team/lib", h.sc.Repository.Slug.String())
	assert.Empty(t, h.api.Calls())
}

func TestRepositoryStep_OtherHost(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.renderer.Answer("enterprise", "false")
	m := h.manifest(t, `{"name":"pkg","repository":"https://gitlab.example/team/lib"}`)

	require.NoError(t, RepositoryStep{}.Run(context.Background(), m, h.sc))
	assert.Nil(t, h.sc.Repository.Slug)
	assert.Empty(t, h.sc.Repository.EnterpriseEndpoint)
	assert.Equal(t, []string{"enterprise"}, h.renderer.Names())
}

func TestRepositoryStep_NoRemote(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.manifest(t, `{"name":"pkg"}`)

	err := RepositoryStep{}.Run(context.Background(), m, h.sc)
	assert.Error(t, err)
	h.log.AssertContains(t, "Could not get repository url")
}
