package setup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/relsetup/internal/manifest"
)

type stubStep struct {
	name   string
	reads  []Field
	writes []Field
	err    error
	ran    *[]string
}

func (s stubStep) Name() string    { return s.name }
func (s stubStep) Reads() []Field  { return s.reads }
func (s stubStep) Writes() []Field { return s.writes }

func (s stubStep) Run(context.Context, *manifest.Manifest, *Context) error {
	*s.ran = append(*s.ran, s.name)
	return s.err
}

type countingCommitter struct {
	commits int
	err     error
}

func (c *countingCommitter) Commit(context.Context, *manifest.Manifest, *Context) error {
	c.commits++
	return c.err
}

func TestPipeline_ValidateDefaultOrder(t *testing.T) {
	t.Parallel()

	p := New(nil)
	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"repository", "registry", "host", "ci"}, p.Names())
}

func TestPipeline_ValidateRejectsBadOrders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		steps    []Step
		wantStep string
		producer string
	}{
		{
			name:     "host before repository",
			steps:    []Step{HostStep{}, RepositoryStep{}, RegistryStep{}, CIStep{}},
			wantStep: "host",
			producer: "repository",
		},
		{
			name:     "ci first",
			steps:    []Step{CIStep{}, RepositoryStep{}, RegistryStep{}, HostStep{}},
			wantStep: "ci",
			producer: "repository",
		},
		{
			name:     "ci before host",
			steps:    []Step{RepositoryStep{}, RegistryStep{}, CIStep{}, HostStep{}},
			wantStep: "ci",
			producer: "host",
		},
		{
			name:     "missing producer",
			steps:    []Step{RepositoryStep{}, HostStep{}, CIStep{}},
			wantStep: "ci",
			producer: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := (&Pipeline{Steps: tt.steps}).Validate()
			var oe *OrderError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.wantStep, oe.Step)
			assert.Equal(t, tt.producer, oe.Producer)
		})
	}
}

func TestPipeline_ValidateRejectsDuplicateOwner(t *testing.T) {
	t.Parallel()

	p := &Pipeline{Steps: []Step{RepositoryStep{}, RepositoryStep{}}}
	assert.ErrorContains(t, p.Validate(), "both write repository")
}

func TestPipeline_RunStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var ran []string
	boom := errors.New("boom")
	committer := &countingCommitter{}
	p := &Pipeline{
		Steps: []Step{
			stubStep{name: "one", writes: []Field{FieldRepository}, ran: &ran},
			stubStep{name: "two", reads: []Field{FieldRepository}, writes: []Field{FieldHostAuth}, err: boom, ran: &ran},
			stubStep{name: "three", reads: []Field{FieldHostAuth}, ran: &ran},
		},
		Committer: committer,
	}

	err := p.Run(context.Background(), manifest.New(nil), h.sc)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "two", se.Step)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"one", "two"}, ran)
	assert.Zero(t, committer.commits)
}

func TestPipeline_RunCommitsOnceOnSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var ran []string
	committer := &countingCommitter{}
	p := &Pipeline{
		Steps:     []Step{stubStep{name: "only", ran: &ran}},
		Committer: committer,
	}

	require.NoError(t, p.Run(context.Background(), manifest.New(nil), h.sc))
	assert.Equal(t, 1, committer.commits)

	lines, err := h.sc.Metrics.Summary()
	require.NoError(t, err)
	assert.Contains(t, strings.Join(lines, "\n"), `relsetup_step_duration_seconds{outcome="ok",step="only"}`)
}

func TestPipeline_RunWrapsCommitFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var ran []string
	p := &Pipeline{
		Steps:     []Step{stubStep{name: "only", ran: &ran}},
		Committer: &countingCommitter{err: errors.New("disk full")},
	}

	err := p.Run(context.Background(), manifest.New(nil), h.sc)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "commit", se.Step)
}

func TestPipeline_RunHonorsCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Pipeline{Steps: []Step{stubStep{name: "only", ran: &ran}}}
	err := p.Run(ctx, manifest.New(nil), h.sc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}
