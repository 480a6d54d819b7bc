package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHasExpectedInitialCursor(t *testing.T) {
	s := New(3, 2)
	require.Equal(t, 3, s.H)
	require.Equal(t, 2, s.P)
	require.Len(t, s.Y, 4)
	require.Len(t, s.X, 8)
	require.Equal(t, 0, s.HCur)
	require.Equal(t, 1, s.HMin)
	require.Equal(t, 2, s.HCut)
}

func TestXAtAndSumX(t *testing.T) {
	s := New(2, 3)
	row := s.XAt(1)
	row[0], row[1], row[2] = 1, 0, 1
	require.Equal(t, 2, s.SumX(1))
	require.Equal(t, []int{1, 0, 1}, s.XAt(1))
}

func TestCheckInvariantS1PanicsOnMismatch(t *testing.T) {
	s := New(1, 2)
	s.Y[1] = 2
	s.XAt(1)[0] = 1 // sum(x) = 1, y[1] = 2
	require.Panics(t, func() { s.CheckInvariantS1(1) })
}

func TestCheckInvariantS1AcceptsConsistentState(t *testing.T) {
	s := New(1, 2)
	s.Y[1] = 1
	s.XAt(1)[0] = 1
	require.NotPanics(t, func() { s.CheckInvariantS1(1) })
}

func TestCheckCursorBoundsPanicsOutsideRange(t *testing.T) {
	s := New(2, 1)
	s.HCur = -1
	require.Panics(t, func() { s.CheckCursorBounds() })

	s.HCur = 3
	require.Panics(t, func() { s.CheckCursorBounds() })

	s.HCur = 2
	require.NotPanics(t, func() { s.CheckCursorBounds() })
}

func TestActuationsCountsOnlyTransitionsAfterHourOne(t *testing.T) {
	s := New(3, 1)
	// Pump 0 is already on at hour 1 (free first activation), then goes
	// off at hour 2 and back on at hour 3 — exactly one counted
	// transition over [2,3].
	s.XAt(1)[0] = 1
	s.XAt(2)[0] = 0
	s.XAt(3)[0] = 1

	require.Equal(t, 0, s.Actuations(0, 1))
	require.Equal(t, 0, s.Actuations(0, 2))
	require.Equal(t, 1, s.Actuations(0, 3))
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	s := New(3, 2)
	s.HCur, s.HMin, s.HCut = 2, 1, 2
	s.Y[1], s.Y[2] = 1, 2
	s.XAt(1)[0], s.XAt(1)[1] = 1, 0
	s.XAt(2)[0], s.XAt(2)[1] = 1, 1

	snap := s.Snapshot()

	other := New(3, 2)
	other.Restore(snap)

	require.Equal(t, s.H, other.H)
	require.Equal(t, s.P, other.P)
	require.Equal(t, s.Y, other.Y)
	require.Equal(t, s.X, other.X)
	require.Equal(t, s.HCur, other.HCur)
	require.Equal(t, s.HMin, other.HMin)
	require.Equal(t, s.HCut, other.HCut)
}

func TestSnapshotIsIndependentOfSource(t *testing.T) {
	s := New(2, 1)
	s.Y[1] = 1
	s.XAt(1)[0] = 1

	snap := s.Snapshot()
	s.Y[1] = 0
	s.XAt(1)[0] = 0

	require.Equal(t, 1, snap.Y[1], "mutating the source after Snapshot must not change the copy")
	require.Equal(t, 1, snap.X[1*s.P], "mutating the source's x row after Snapshot must not change the copy")
}

func TestRestoreOverwritesReceiverWholesale(t *testing.T) {
	donor := New(2, 1)
	donor.HCur, donor.HMin, donor.HCut = 1, 1, 1
	donor.Y[1] = 0

	receiver := New(2, 1)
	receiver.HCur, receiver.HMin, receiver.HCut = 2, 1, 1
	receiver.Y[1], receiver.Y[2] = 1, 1
	receiver.XAt(1)[0] = 1
	receiver.XAt(2)[0] = 1

	receiver.Restore(donor.Snapshot())

	require.Equal(t, 1, receiver.HCur)
	require.Equal(t, 0, receiver.Y[1])
	require.Equal(t, 0, receiver.Y[2], "stale receiver state must be overwritten by the snapshot's values")
}

func TestNewIncumbentStartsAtPositiveInfinity(t *testing.T) {
	inc := NewIncumbent()
	require.True(t, math.IsInf(inc.CostUB, 1))
	require.Empty(t, inc.Y)
	require.Empty(t, inc.X)
}

func TestIncumbentBetterAndUpdate(t *testing.T) {
	inc := NewIncumbent()
	require.True(t, inc.Better(100))

	inc.Update(100, []int{0, 1}, []int{1, 0})
	require.False(t, inc.Better(100))
	require.True(t, inc.Better(99.9))
	require.Equal(t, []int{0, 1}, inc.Y)
	require.Equal(t, []int{1, 0}, inc.X)
}

func TestIncumbentCloneIsIndependent(t *testing.T) {
	inc := NewIncumbent()
	inc.Update(50, []int{1, 2}, []int{1, 1})

	clone := inc.Clone()
	clone.Y[0] = 9

	require.Equal(t, 1, inc.Y[0], "mutating the clone must not affect the original")
	require.Equal(t, 50.0, clone.CostUB)
}
