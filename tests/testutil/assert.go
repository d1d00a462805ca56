package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertNoSecretLeak fails when any of secrets appears in output.
func AssertNoSecretLeak(t *testing.T, output string, secrets ...string) {
	t.Helper()
	for _, s := range secrets {
		if s == "" {
			continue
		}
		assert.NotContains(t, output, s, "secret %q leaked into output", s)
	}
}

// AssertFileContents fails unless path holds exactly expected.
func AssertFileContents(t *testing.T, path, expected string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read %s", path)
	assert.Equal(t, expected, string(data))
}
