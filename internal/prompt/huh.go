package prompt

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// HuhRenderer renders fields with charmbracelet/huh. When input is not a
// terminal it falls back to huh's accessible (line-based) mode.
type HuhRenderer struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// NewHuhRendererWith renders on in/out. accessible selects huh's
// line-based mode.
func NewHuhRendererWith(in io.Reader, out io.Writer, accessible bool) *HuhRenderer {
	return &HuhRenderer{in: in, out: out, accessible: accessible}
}

// Render implements Renderer.
func (r *HuhRenderer) Render(ctx context.Context, f Field) (string, error) {
	var field huh.Field
	var text string
	var confirmed bool

	description := ""
	if f.Error != nil {
		description = f.Error.Error()
	}

	switch f.Kind {
	case Select:
		text = f.Default
		field = huh.NewSelect[string]().
			Title(f.Message).
			Description(description).
			Options(huh.NewOptions(f.Choices...)...).
			Value(&text)
	case Confirm:
		confirmed, _ = strconv.ParseBool(f.Default)
		field = huh.NewConfirm().
			Title(f.Message).
			Description(description).
			Value(&confirmed)
	default:
		input := huh.NewInput().
			Title(f.Message).
			Description(description).
			Value(&text)
		if f.Kind == Password {
			input = input.EchoMode(huh.EchoModePassword)
			if f.Default != "" {
				input = input.Placeholder("(stored)")
			}
		} else if f.Default != "" {
			input = input.Placeholder(f.Default)
		}
		if f.Validate != nil {
			validate := f.Validate
			fallback := f.Default
			input = input.Validate(func(s string) error {
				if s == "" && fallback != "" {
					return nil
				}
				return validate(s)
			})
		}
		field = input
	}

	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(r.in).
		WithOutput(r.out).
		WithAccessible(r.accessible)
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}

	if f.Kind == Confirm {
		return strconv.FormatBool(confirmed), nil
	}
	return text, nil
}
