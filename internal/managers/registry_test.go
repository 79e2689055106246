package managers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codex-k8s/dcosdeploy/internal/settings"
)

func TestRegistry_CoversEveryType(t *testing.T) {
	s, err := settings.FromMap(map[string]string{"DCOS_BASE_URL": "https://cluster.example"})
	assert.NoError(t, err)

	managers, parsers := Registry(s, &bytes.Buffer{}, nil)
	assert.Len(t, managers, len(parsers))
	for _, typ := range Types() {
		assert.NotNil(t, managers[typ], typ)
		assert.NotNil(t, parsers[typ], typ)
	}
}

func TestTypes_Sorted(t *testing.T) {
	assert.Equal(t, []string{"command", "container", "kubernetes", "taskexec"}, Types())
}
