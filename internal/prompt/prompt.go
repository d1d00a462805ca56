// Package prompt asks the user questions. A Service walks a list of
// Questions, skipping those whose When returns false, resolving defaults
// from earlier answers and re-asking any answer that fails validation.
// Rendering is delegated to a Renderer so the flow can be scripted in tests.
package prompt

import (
	"context"
	"fmt"
	"strconv"
)

// Kind is the widget used for a question.
type Kind int

const (
	Input Kind = iota
	Password
	Select
	Confirm
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Password:
		return "password"
	case Select:
		return "select"
	case Confirm:
		return "confirm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Question is one prompt.
type Question struct {
	Name     string
	Message  string
	Kind     Kind
	Choices  []string
	Default  func(Answers) string
	When     func(Answers) bool
	Validate func(string) error
}

// Answers maps question names to the raw answers. Confirm answers are
// "true" or "false".
type Answers map[string]string

// String returns the answer to name.
func (a Answers) String(name string) string {
	return a[name]
}

// Bool returns a confirm answer.
func (a Answers) Bool(name string) bool {
	b, _ := strconv.ParseBool(a[name])
	return b
}

// Has reports whether name was asked.
func (a Answers) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Field is what a Renderer shows for a single question.
type Field struct {
	Name     string
	Kind     Kind
	Message  string
	Choices  []string
	Default  string
	Error    error // previous validation failure, nil on the first attempt
	Validate func(string) error
}

// Renderer displays one field and returns the raw answer.
type Renderer interface {
	Render(ctx context.Context, f Field) (string, error)
}

// Asker is the prompt dependency of the setup steps.
type Asker interface {
	Ask(ctx context.Context, questions []Question) (Answers, error)
}

// Service implements Asker on top of a Renderer.
type Service struct {
	renderer Renderer
}

// NewService creates a prompt service.
func NewService(r Renderer) *Service {
	return &Service{renderer: r}
}

// Ask asks questions in order and returns the collected answers.
func (s *Service) Ask(ctx context.Context, questions []Question) (Answers, error) {
	answers := make(Answers, len(questions))
	for _, q := range questions {
		if q.When != nil && !q.When(answers) {
			continue
		}
		value, err := s.askOne(ctx, q, answers)
		if err != nil {
			return answers, fmt.Errorf("prompt %q: %w", q.Name, err)
		}
		answers[q.Name] = value
	}
	return answers, nil
}

func (s *Service) askOne(ctx context.Context, q Question, answers Answers) (string, error) {
	f := Field{
		Name:     q.Name,
		Kind:     q.Kind,
		Message:  q.Message,
		Choices:  q.Choices,
		Validate: q.Validate,
	}
	if q.Default != nil {
		f.Default = q.Default(answers)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		value, err := s.renderer.Render(ctx, f)
		if err != nil {
			return "", err
		}
		if value == "" && q.Kind != Confirm {
			value = f.Default
		}
		if q.Kind == Select && !contains(q.Choices, value) {
			f.Error = fmt.Errorf("choose one of the listed options")
			continue
		}
		if q.Validate != nil {
			if err := q.Validate(value); err != nil {
				f.Error = err
				continue
			}
		}
		return value, nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
