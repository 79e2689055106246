package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_DependenciesFirst(t *testing.T) {
	g, err := NewGraph(
		unit("app", WhenAlways, create("db"), update("config")),
		unit("config", WhenAlways),
		unit("db", WhenAlways, create("volume")),
		unit("volume", WhenAlways),
		unit("cron", WhenAlways),
	)
	require.NoError(t, err)

	order, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, order, 5)

	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	assert.Less(t, index["db"], index["app"])
	assert.Less(t, index["config"], index["app"])
	assert.Less(t, index["volume"], index["db"])
}

func TestPlan_IndependentUnitsKeepGraphOrder(t *testing.T) {
	g, err := NewGraph(unit("z", WhenAlways), unit("a", WhenAlways), unit("m", WhenAlways))
	require.NoError(t, err)

	order, err := Plan(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, order)
}

func TestPlan_DuplicateDependencyIsIgnored(t *testing.T) {
	g, err := NewGraph(
		unit("a", WhenAlways, create("b"), update("b")),
		unit("b", WhenAlways),
	)
	require.NoError(t, err)

	order, err := Plan(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestPlan_UnknownDependency(t *testing.T) {
	g, err := NewGraph(unit("a", WhenAlways, create("ghost")))
	require.NoError(t, err)

	_, err = Plan(g)
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestPlan_Cycle(t *testing.T) {
	g, err := NewGraph(
		unit("a", WhenAlways, create("b")),
		unit("b", WhenAlways, create("c")),
		unit("c", WhenAlways, create("a")),
	)
	require.NoError(t, err)

	_, err = Plan(g)
	var unitErr *UnitError
	require.ErrorAs(t, err, &unitErr)
	assert.ErrorIs(t, err, ErrCycleDetected)
	assert.Equal(t, unitErr.Path[0], unitErr.Path[len(unitErr.Path)-1])
}

func TestPlan_SelfCycle(t *testing.T) {
	g, err := NewGraph(unit("a", WhenAlways, create("a")))
	require.NoError(t, err)

	_, err = Plan(g)
	assert.ErrorIs(t, err, ErrCycleDetected)
}
