// Package driver implements the Search Driver (§4.E): the per-worker loop
// that advances the Configuration Counter, materializes x, asks the Node
// Evaluator to classify the result, and folds the outcome into the local
// Statistics and Incumbent.
//
// Grounded on original_source/epanet-dev/src/CLI/BBSolver.cpp's main
// search loop (the `while (counter.advance(...))` body around
// process_node), generalized from its single-worker shape to operate on
// one worker's already-assigned subtree (§4.F hands subtrees to Driver
// instances, it does not change what Driver does inside one).
package driver

import (
	"context"
	"fmt"

	"github.com/michaelsouza/jessica-bb/internal/counter"
	"github.com/michaelsouza/jessica-bb/internal/evaluator"
	"github.com/michaelsouza/jessica-bb/internal/schedule"
	"github.com/michaelsouza/jessica-bb/internal/stats"
	"go.uber.org/zap"
)

// Driver runs one worker's local search loop over its assigned subtree.
type Driver struct {
	Counter   *counter.Counter
	Evaluator *evaluator.Evaluator
	Stats     *stats.Stats
	Incumbent *schedule.Incumbent
	AMax      int

	log *zap.Logger
}

// New builds a Driver. log may be nil (a no-op logger is substituted),
// matching constraints.NewSet's convention.
func New(c *counter.Counter, ev *evaluator.Evaluator, st *stats.Stats, inc *schedule.Incumbent, aMax int, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{Counter: c, Evaluator: ev, Stats: st, Incumbent: inc, AMax: aMax, log: log}
}

// Step runs exactly one iteration of the local search loop: materialize x
// at the counter's current hour, evaluate it, record the outcome, and
// advance to the next candidate. It returns false once the assigned
// subtree is exhausted — the caller (directly, or the coordinator between
// synchronization rounds) is expected to call Step in a loop until it
// returns false.
func (d *Driver) Step(ctx context.Context) (bool, error) {
	s := d.Counter.State()
	s.CheckCursorBounds()

	if s.HCur == 0 {
		// h=0 is pure unexplored history, not a candidate (§4.E's
		// pseudocode never materializes or evaluates it) — descend
		// straight into hour 1 without touching the oracle or recording
		// a feasible/pruned outcome for it.
		return d.Counter.Advance(true), nil
	}

	if !d.Counter.MaterializeX(d.AMax) {
		d.Stats.RecordPruning(s.HCur, stats.Actuations)
		return d.Counter.Advance(false), nil
	}

	result, err := d.Evaluator.Evaluate(ctx, d.Counter)
	if err != nil {
		return false, fmt.Errorf("driver: step at h=%d: %w", s.HCur, err)
	}

	if !result.Feasible {
		d.Stats.RecordPruning(s.HCur, result.Reason)
		return d.Counter.Advance(false), nil
	}

	d.Stats.RecordFeasible(s.HCur)

	if s.HCur == s.H {
		if d.Incumbent.Better(result.Cost) {
			d.log.Debug("incumbent improved",
				zap.Float64("cost", result.Cost), zap.Float64("previous_cost_ub", d.Incumbent.CostUB))
			d.Incumbent.Update(result.Cost, s.Y, s.X)
		}
		return d.Counter.Advance(false), nil
	}

	return d.Counter.Advance(true), nil
}

// Run drives Step in a loop until the assigned subtree is exhausted,
// propagating the first error encountered. budget caps the number of
// Step calls per invocation so the coordinator can interleave Run with
// its synchronization rounds; a budget <= 0 means "run to exhaustion".
func (d *Driver) Run(ctx context.Context, budget int) (exhausted bool, err error) {
	steps := 0
	for {
		if budget > 0 && steps >= budget {
			return false, nil
		}
		ok, err := d.Step(ctx)
		if err != nil {
			return false, err
		}
		steps++
		if !ok {
			d.Stats.Finalize()
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
	}
}
