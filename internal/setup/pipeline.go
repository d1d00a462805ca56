package setup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/systmms/relsetup/internal/manifest"
)

// Field names a Context section owned by exactly one step.
type Field string

const (
	FieldRepository   Field = "repository"
	FieldRegistryAuth Field = "registryAuth"
	FieldHostAuth     Field = "hostAuth"
	FieldCI           Field = "ci"
)

// Step is one stage of the pipeline. Reads and Writes declare which
// Context fields the step depends on and which it owns.
type Step interface {
	Name() string
	Reads() []Field
	Writes() []Field
	Run(ctx context.Context, m *manifest.Manifest, sc *Context) error
}

// Committer persists the manifest after every step succeeded.
type Committer interface {
	Commit(ctx context.Context, m *manifest.Manifest, sc *Context) error
}

// StepError wraps the fatal error that stopped the pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// OrderError reports a step ordering that reads a field before it exists.
type OrderError struct {
	Step     string
	Field    Field
	Producer string // empty when no step writes the field
}

func (e *OrderError) Error() string {
	if e.Producer == "" {
		return fmt.Sprintf("step %q reads %s, which no step produces", e.Step, e.Field)
	}
	return fmt.Sprintf("step %q reads %s, which is produced by later step %q", e.Step, e.Field, e.Producer)
}

// Pipeline runs steps in order and then the commit phase.
type Pipeline struct {
	Steps     []Step
	Committer Committer
}

// DefaultSteps is the standard setup order.
func DefaultSteps() []Step {
	return []Step{RepositoryStep{}, RegistryStep{}, HostStep{}, CIStep{}}
}

// New creates the standard pipeline.
func New(c Committer) *Pipeline {
	return &Pipeline{Steps: DefaultSteps(), Committer: c}
}

// Validate checks that every field a step reads was written by an earlier
// step and that no field has two owners.
func (p *Pipeline) Validate() error {
	owner := make(map[Field]string)
	for _, s := range p.Steps {
		for _, f := range s.Writes() {
			if prev, ok := owner[f]; ok {
				return fmt.Errorf("steps %q and %q both write %s", prev, s.Name(), f)
			}
			owner[f] = s.Name()
		}
	}

	produced := make(map[Field]bool)
	for _, s := range p.Steps {
		for _, f := range s.Reads() {
			if !produced[f] {
				return &OrderError{Step: s.Name(), Field: f, Producer: owner[f]}
			}
		}
		for _, f := range s.Writes() {
			produced[f] = true
		}
	}
	return nil
}

// Names lists the step names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name())
	}
	return names
}

// Run executes the steps in order. The first failure stops the run; later
// steps and the commit phase are skipped.
func (p *Pipeline) Run(ctx context.Context, m *manifest.Manifest, sc *Context) error {
	if err := p.Validate(); err != nil {
		return err
	}

	sc.Log.Debug("running steps: %s", strings.Join(p.Names(), ", "))
	for _, s := range p.Steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.Name(), Err: err}
		}
		start := time.Now()
		err := s.Run(ctx, m, sc)
		sc.Metrics.ObserveStep(s.Name(), err, time.Since(start))
		if err != nil {
			return &StepError{Step: s.Name(), Err: err}
		}
	}

	if p.Committer == nil {
		return nil
	}
	start := time.Now()
	err := p.Committer.Commit(ctx, m, sc)
	sc.Metrics.ObserveStep("commit", err, time.Since(start))
	if err != nil {
		return &StepError{Step: "commit", Err: err}
	}
	return nil
}
