// Package coordinator implements §4.F's work distribution: a fixed pool of
// symmetric peer workers, each running its own Driver over a disjoint
// subtree, synchronized in rounds. Each round has a local phase (every
// still-active worker takes a bounded batch of Driver.Step calls
// concurrently) followed by a synchronization phase run single-threaded:
// incumbent gossip, a termination check, and a steal/hand-off pass that
// moves unexplored work from a busy worker to an idle one, gated by §4.F's
// backpressure depth bound so near-leaf subtrees are never split.
//
// Grounded on original_source/parbb/parbb.cpp's BBManager/BBTask split (a
// manager thread handing unexplored BBTask ranges to idle workers) —
// generalized from a task queue of independent units to a live
// branch-and-bound subtree that is split in place rather than dequeued.
// golang.org/x/sync/errgroup (sourced from the pack's dependency graph)
// supervises the local phase's concurrent fan-out.
package coordinator

import (
	"context"
	"fmt"

	"github.com/michaelsouza/jessica-bb/internal/driver"
	"github.com/michaelsouza/jessica-bb/internal/schedule"
	"github.com/michaelsouza/jessica-bb/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Worker pairs a Driver with the coordinator's view of whether it has any
// more work. ID is used only for logging.
type Worker struct {
	ID     int
	Driver *driver.Driver

	done bool
}

// NewWorker wraps a Driver for coordination.
func NewWorker(id int, d *driver.Driver) *Worker {
	return &Worker{ID: id, Driver: d}
}

// MarkIdle flags the worker as having no assigned work, without running a
// single Step. Used to seed the pool per §8's boundary case: every worker
// but one starts idle and must be handed a subtree by rebalance before it
// contributes anything.
func (w *Worker) MarkIdle() {
	w.done = true
}

// Coordinator runs a fixed set of Workers to completion, synchronizing
// them in rounds of StepsPerRound local steps each.
type Coordinator struct {
	Workers       []*Worker
	StepsPerRound int
	// MaxFreeLevel is the hand-off depth bound (§4.F "Backpressure"):
	// trySplit only fires when the donor's free level is <= this value,
	// so near-leaf subtrees are never split. Fed from the CLI's
	// -t/--h-threshold flag.
	MaxFreeLevel int

	log *zap.Logger
}

// New builds a Coordinator. log may be nil. stepsPerRound must be > 0;
// it bounds how long a worker runs locally before the next synchronization
// phase gets a chance to gossip the incumbent and rebalance idle workers.
// maxFreeLevel is §4.F's hand-off depth bound: a donor only splits off work
// when its free level sits at or above that depth (i.e. <= maxFreeLevel).
func New(workers []*Worker, stepsPerRound, maxFreeLevel int, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if stepsPerRound <= 0 {
		stepsPerRound = 1000
	}
	return &Coordinator{Workers: workers, StepsPerRound: stepsPerRound, MaxFreeLevel: maxFreeLevel, log: log}
}

// Run drives every worker until the whole pool is simultaneously out of
// work, then merges their statistics and incumbents. It returns the
// global best schedule found and the per-worker Stats for §4.G reporting.
func (co *Coordinator) Run(ctx context.Context) (schedule.Incumbent, []*stats.Stats, error) {
	for round := 0; ; round++ {
		if err := co.localPhase(ctx); err != nil {
			return schedule.Incumbent{}, nil, fmt.Errorf("coordinator: round %d: %w", round, err)
		}

		best := co.gossipIncumbent()
		co.log.Debug("synchronization round complete",
			zap.Int("round", round), zap.Float64("best_cost_ub", best.CostUB))

		if co.allDone() {
			break
		}
		co.rebalance()
	}

	return co.finalReport()
}

// localPhase runs every still-active worker's Driver for up to
// StepsPerRound steps, concurrently. This is §4.F's "all-gather" phase's
// predecessor: the concurrent work the next synchronization step gathers
// results from.
func (co *Coordinator) localPhase(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range co.Workers {
		if w.done {
			continue
		}
		w := w
		g.Go(func() error {
			exhausted, err := w.Driver.Run(gctx, co.StepsPerRound)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w.ID, err)
			}
			if exhausted {
				w.done = true
			}
			return nil
		})
	}
	return g.Wait()
}

// gossipIncumbent implements the incumbent all-gather and broadcast:
// every worker's local incumbent is inspected, the best is adopted by all
// of them (both their Incumbent record and their Constraint Set's cost
// bound, so the Cost predicate in their very next evaluation already
// prunes against the tightened bound).
func (co *Coordinator) gossipIncumbent() schedule.Incumbent {
	best := schedule.NewIncumbent()
	for _, w := range co.Workers {
		inc := w.Driver.Incumbent
		if best.Better(inc.CostUB) {
			best.Update(inc.CostUB, inc.Y, inc.X)
		}
	}
	for _, w := range co.Workers {
		if w.Driver.Incumbent.CostUB > best.CostUB {
			w.Driver.Incumbent.Update(best.CostUB, best.Y, best.X)
		}
		if w.Driver.Evaluator.Constraints.CostUB > best.CostUB {
			w.Driver.Evaluator.Constraints.SetCostUB(best.CostUB)
		}
	}
	return best
}

// allDone reports whether every worker has exhausted its assigned subtree.
func (co *Coordinator) allDone() bool {
	for _, w := range co.Workers {
		if !w.done {
			return false
		}
	}
	return true
}

// rebalance pairs each idle worker with a busy donor willing to split off
// part of its remaining range, per §4.F's free-level exchange. A worker
// that finds no donor stays idle until the next round.
func (co *Coordinator) rebalance() {
	var idle, busy []*Worker
	for _, w := range co.Workers {
		if w.done {
			idle = append(idle, w)
		} else {
			busy = append(busy, w)
		}
	}
	for _, r := range idle {
		for _, d := range busy {
			if co.trySplit(d, r) {
				r.done = false
				break
			}
		}
	}
}

// trySplit attempts to hand off the upper half of donor's free level to
// receiver. It returns false, leaving both workers untouched, if donor has
// no free level, the free level is deeper than MaxFreeLevel (§4.F
// "Backpressure": "a tunable depth bound preventing hand-offs of near-leaf
// subtrees"; otherwise "the candidate subtree is too shallow or too rich and
// the worker keeps it"), or its remaining range has fewer than two values
// (nothing useful to give away).
//
// y[level] may take every value in [lo, limit]. On success the donor keeps
// [lo, mid-1] and the receiver takes [mid, limit], so no value is explored
// by both. The donor keeps the lower half of the split range and records a
// Split pruning at the split level (§4.G "SPLIT ... recorded on the
// sender's side of a hand-off, not a constraint failure"); receiver's
// entire state is overwritten from a snapshot of donor's state with the
// upper half installed, per the hand-off protocol's "receiver overwrites
// its state from the buffer".
func (co *Coordinator) trySplit(donor, receiver *Worker) bool {
	ds := donor.Driver.Counter.State()
	level := donor.Driver.Counter.FreeLevel()
	if level > ds.H || level > co.MaxFreeLevel {
		return false
	}

	limit := ds.P
	if level == ds.HMin {
		limit = ds.HCut
	}
	lo := ds.Y[level]
	if limit-lo < 2 {
		return false
	}
	mid := lo + (limit-lo)/2

	snap := ds.Snapshot()
	snap.HMin, snap.HCut, snap.HCur = level, limit, level
	snap.Y[level] = mid

	rs := receiver.Driver.Counter.State()
	rs.Restore(snap)
	rs.CheckCursorBounds()

	ds.HMin, ds.HCut, ds.HCur = level, mid-1, level
	donor.Driver.Stats.RecordPruning(level, stats.Split)

	co.log.Debug("hand-off",
		zap.Int("donor", donor.ID), zap.Int("receiver", receiver.ID),
		zap.Int("level", level), zap.Int("donor_range_lo", lo), zap.Int("donor_range_hi", mid-1),
		zap.Int("receiver_range_lo", mid), zap.Int("receiver_range_hi", limit))
	return true
}

// finalReport merges every worker's Stats and picks the globally best
// incumbent, after the pool has stopped (§4.F's trailing barrier: no
// worker proceeds past this point until every other one has too, which
// Run's loop structure already guarantees since it only reaches here once
// allDone is true).
func (co *Coordinator) finalReport() (schedule.Incumbent, []*stats.Stats, error) {
	best := schedule.NewIncumbent()
	allStats := make([]*stats.Stats, len(co.Workers))
	for i, w := range co.Workers {
		if best.Better(w.Driver.Incumbent.CostUB) {
			best.Update(w.Driver.Incumbent.CostUB, w.Driver.Incumbent.Y, w.Driver.Incumbent.X)
		}
		allStats[i] = w.Driver.Stats
	}
	return best, allStats, nil
}
