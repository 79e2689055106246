package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_LaterWins(t *testing.T) {
	out := Merge(Vars{"a": "1", "b": "1"}, nil, Vars{"b": "2"})
	assert.Equal(t, Vars{"a": "1", "b": "2"}, out)
}

func TestParseVarList(t *testing.T) {
	vars, err := ParseVarList([]string{"env=prod", " version = 1.2 ", "", "url=http://x?a=b"})
	require.NoError(t, err)
	assert.Equal(t, Vars{"env": "prod", "version": "1.2", "url": "http://x?a=b"}, vars)

	_, err = ParseVarList([]string{"novalue"})
	assert.Error(t, err)

	_, err = ParseVarList([]string{"=value"})
	assert.Error(t, err)
}

func TestLoadEnvFiles_RelativeToBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.env"), []byte("A=1\nB=from-a\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.env"), []byte("# comment\nB=from-b\n"), 0o600))

	vars, err := LoadEnvFiles(dir, []string{"a.env", "", "b.env"})
	require.NoError(t, err)
	assert.Equal(t, Vars{"A": "1", "B": "from-b"}, vars)

	_, err = LoadEnvFiles(dir, []string{"missing.env"})
	assert.Error(t, err)
}

func TestLoadVarFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.yml")
	require.NoError(t, os.WriteFile(path, []byte("env: staging\nreplicas: \"3\"\n"), 0o600))

	vars, err := LoadVarFile(path)
	require.NoError(t, err)
	assert.Equal(t, Vars{"env": "staging", "replicas": "3"}, vars)
}

func TestLoadVarFile_Lines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\nenv='prod'\nregion=\"eu\"\n"), 0o600))

	vars, err := LoadVarFile(path)
	require.NoError(t, err)
	assert.Equal(t, Vars{"env": "prod", "region": "eu"}, vars)
}

func TestKeysSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Vars{"c": "", "a": "", "b": ""}.Keys())
}
