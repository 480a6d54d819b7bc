package counter

import (
	"testing"

	"github.com/michaelsouza/jessica-bb/internal/schedule"
	"github.com/stretchr/testify/require"
)

// scenarios mirrors spec §8's concrete scenario table: a three-pump,
// 24-hour horizon. Each case replays y and checks the resulting x against
// Invariants S1/S2. The expected costs in §8 require the real hydraulic
// oracle and are not checked here or elsewhere; the Mock oracle's
// surrogate cost model does not reproduce them.
func scenarios() []struct {
	name string
	y    []int
	aMax int
	ok   bool
} {
	return []struct {
		name string
		y    []int
		aMax int
		ok   bool
	}{
		{
			name: "scenario-1",
			y:    []int{1, 2, 1, 2, 1, 1, 1, 1, 0, 0, 2, 2, 2, 2, 2, 1, 2, 1, 0, 0, 0, 2, 1, 0},
			aMax: 3,
			ok:   true,
		},
		{
			name: "scenario-2",
			y:    []int{1, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 0, 0, 1, 1, 1},
			aMax: 3,
			ok:   true,
		},
		{
			name: "scenario-3",
			y:    []int{1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 0, 0, 0, 1, 1, 1, 0},
			aMax: 3,
			ok:   true,
		},
		{
			// The first activation of a schedule (the 0->1 transition out
			// of the unused h=0 base) is never counted against any
			// pump's cap — calc_actuations_csum's cumulative sum starts
			// at hour 2, matching BBCounter::calc_actuations_csum. That
			// makes this A_max=1 schedule feasible: every pump actuates
			// at most once after its first (uncounted) activation.
			name: "scenario-4",
			y:    []int{1, 1, 1, 0, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 0, 0, 0, 1, 1, 1, 1},
			aMax: 1,
			ok:   true,
		},
	}
}

func TestScenariosProduceConsistentX(t *testing.T) {
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			s := schedule.New(len(sc.y), 3)
			ok, failedAt := ReplayY(s, sc.y, sc.aMax)
			require.True(t, ok, "expected feasible replay, failed at hour %d", failedAt)
			for h := 1; h <= s.H; h++ {
				require.Equal(t, s.Y[h], s.SumX(h), "S1 violated at hour %d", h)
			}
			for p := 0; p < s.P; p++ {
				require.LessOrEqual(t, s.Actuations(p, s.H), sc.aMax, "S2 violated for pump %d", p)
			}
		})
	}
}

func TestAdvanceDescendsThenPops(t *testing.T) {
	s := schedule.New(3, 2)
	c := New(s)

	require.True(t, c.Advance(true)) // h=0 -> h=1, y[1]=0
	require.Equal(t, 1, s.HCur)
	require.Equal(t, 0, s.Y[1])

	require.True(t, c.Advance(true)) // h=1 -> h=2, y[2]=0
	require.Equal(t, 2, s.HCur)

	// Infeasible at h=2 (>h_min): increments y[2] since 0 < P=2.
	require.True(t, c.Advance(false))
	require.Equal(t, 2, s.HCur)
	require.Equal(t, 1, s.Y[2])

	require.True(t, c.Advance(false)) // y[2]: 1 -> 2
	require.Equal(t, 2, s.Y[2])

	// y[2] == P: pop to h=1 (== h_min) and increment y[1] there.
	require.True(t, c.Advance(false))
	require.Equal(t, 1, s.HCur)
	require.Equal(t, 1, s.Y[1])
}

func TestAdvanceExhaustsSubtree(t *testing.T) {
	s := schedule.New(1, 1)
	s.HMin, s.HCut = 1, 1
	c := New(s)

	require.True(t, c.Advance(true)) // h=0 -> h=1, y[1]=0
	require.Equal(t, 1, s.HCur)

	// infeasible at h_cur==h_min: y[1]=0 < h_cut=1, increments.
	require.True(t, c.Advance(false))
	require.Equal(t, 1, s.Y[1])

	// infeasible again: y[1]=1 == h_cut=1, subtree exhausted.
	require.False(t, c.Advance(false))
}

func TestJumpToEndAtHMin(t *testing.T) {
	s := schedule.New(2, 3)
	s.HMin, s.HCut = 1, 2
	s.HCur = 1
	c := New(s)
	c.JumpToEnd()
	require.Equal(t, s.HCut, s.Y[1])
}

func TestJumpToEndBelowHMin(t *testing.T) {
	s := schedule.New(3, 3)
	s.HMin = 1
	s.HCur = 2
	c := New(s)
	c.JumpToEnd()
	require.Equal(t, s.P, s.Y[2])
}

func TestFreeLevelIdentifiesShallowestOpenHour(t *testing.T) {
	s := schedule.New(4, 2)
	s.HMin, s.HCut = 1, 2
	s.Y[1] = 2 // exhausted at h_min
	s.Y[2] = 1 // open
	s.HCur = 2
	c := New(s)
	require.Equal(t, 2, c.FreeLevel())
}

func TestMaterializeXRespectsActuationCap(t *testing.T) {
	// A_max=0: any hour with y[h] > y[h-1] must fail materialization.
	s := schedule.New(2, 2)
	s.HCur = 1
	s.Y[0] = 0
	s.Y[1] = 1
	c := New(s)
	require.False(t, c.MaterializeX(0))
}

func TestMaterializeXNoOpWhenYUnchanged(t *testing.T) {
	s := schedule.New(2, 2)
	s.HCur = 1
	s.Y[0], s.Y[1] = 0, 0
	c := New(s)
	require.True(t, c.MaterializeX(3))
	require.Equal(t, []int{0, 0}, s.XAt(1))
}
