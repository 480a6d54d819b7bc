package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordAndMerge(t *testing.T) {
	a := New(3)
	a.RecordFeasible(1)
	a.RecordPruning(2, Pressures)
	a.RecordPruning(2, Pressures)
	a.Finalize()

	b := New(3)
	b.RecordFeasible(1)
	b.RecordPruning(2, Cost)
	b.Finalize()

	totals := Merge([]*Stats{a, b})
	require.Equal(t, int64(2), totals.Feasible[1])
	require.Equal(t, int64(2), totals.Prunings[2][Pressures])
	require.Equal(t, int64(1), totals.Prunings[2][Cost])
	require.Equal(t, int64(0), totals.Prunings[2][Actuations])
}

func TestMergeEmpty(t *testing.T) {
	totals := Merge(nil)
	require.Equal(t, 0, totals.H)
}

func TestPruneReasonString(t *testing.T) {
	require.Equal(t, "split", Split.String())
	require.Equal(t, "unknown", PruneReason(99).String())
}
