package ghoutput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	changed := true

	require.NoError(t, WriteFile(path, Result{DryRun: true, Unit: "web", Changed: &changed}))
	require.NoError(t, WriteFile(path, Result{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mode=dry-run\nunit=web\nchanged=true\nmode=apply\n", string(data))
}

func TestWrite_NoopOutsideActions(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")
	assert.NoError(t, Write(Result{}))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a%0Ab%0D", sanitize("a\nb\r"))
}
