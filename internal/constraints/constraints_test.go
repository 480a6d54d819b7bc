package constraints

import (
	"context"
	"testing"

	"github.com/michaelsouza/jessica-bb/internal/oracle"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Set, oracle.Handle) {
	t.Helper()
	ctx := context.Background()
	m := oracle.NewMock(10)
	m.LoadDescriptor(oracle.NetworkDescriptor{
		Nodes: []oracle.NodeFixture{{Name: "55", Threshold: 42}},
		Tanks: []oracle.TankFixture{{Name: "65", LevelMin: 66.53, LevelMax: 71.53, InitialLevel: 66.93}},
		Pumps: []string{"111"},
	})
	h, err := m.CreateProject(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Load(ctx, h, "net.inp"))

	nodeIdx, err := m.GetNodeIndex(ctx, h, "55")
	require.NoError(t, err)
	tankIdx, err := m.GetNodeIndex(ctx, h, "65")
	require.NoError(t, err)

	set := NewSet(m, []NodeRef{{Index: nodeIdx, Threshold: 42}}, []TankRef{
		{Index: tankIdx, LevelMin: 66.53, LevelMax: 71.53, InitialLevel: 66.93},
	}, nil)
	return set, h
}

func TestCheckPressuresAndLevelsPassInitially(t *testing.T) {
	set, h := setup(t)
	ctx := context.Background()

	ok, err := set.CheckPressures(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = set.CheckLevels(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = set.CheckStability(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckCostComparesAgainstUB(t *testing.T) {
	set, _ := setup(t)
	set.SetCostUB(100)
	require.True(t, set.CheckCost(99))
	require.False(t, set.CheckCost(100))
	require.False(t, set.CheckCost(101))
}
