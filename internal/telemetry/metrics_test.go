package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/michaelsouza/jessica-bb/internal/stats"
)

func TestObserveWorkerExportsPruningsAndFeasible(t *testing.T) {
	m := New()

	s := stats.New(2)
	s.RecordFeasible(1)
	s.RecordPruning(2, stats.Pressures)
	s.RecordPruning(2, stats.Pressures)
	s.Finalize()

	m.ObserveWorker("0", s)

	require.Equal(t, float64(2), testutil.ToFloat64(m.prunings.WithLabelValues("2", "pressures")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.feasible.WithLabelValues("1")))
}

func TestObserveIncumbentAndActiveWorkers(t *testing.T) {
	m := New()
	m.ObserveIncumbent(1234.5)
	m.ObserveActiveWorkers(3)

	require.Equal(t, 1234.5, testutil.ToFloat64(m.incumbentUB))
	require.Equal(t, float64(3), testutil.ToFloat64(m.workerActive))
}
