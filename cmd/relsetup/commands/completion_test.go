package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/relsetup/internal/config"
)

func TestCompletionCommand(t *testing.T) {
	t.Parallel()

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			t.Parallel()

			root := &cobra.Command{Use: "relsetup"}
			root.AddCommand(NewCompletionCommand(&config.Config{}))
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "relsetup")
		})
	}

	root := &cobra.Command{Use: "relsetup"}
	root.AddCommand(NewCompletionCommand(&config.Config{}))
	root.SetArgs([]string{"completion", "tcsh"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
