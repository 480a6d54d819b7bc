// Package counter implements the Configuration Counter (§4.C): the
// enumeration stepper over (y, x, h_cur, h_min, h_cut), canonical
// materialization of x per Invariant S3, and the free-level query the
// coordinator uses to decide what it can hand off.
//
// Grounded on original_source/epanet-dev/src/CLI/BBCounter.{h,cpp} for the
// x materialization (update_x_core, calc_actuations_csum) and on
// BBSolver.cpp's own update_y, which already implements the h_min/h_cut-
// aware pop-and-retry this package's retreat ports almost branch-for-
// branch (the h==h_min / y[h]<h_cut check and the h_min<h<=h_max retreat
// loop both appear there, not in BBCounter.cpp).
package counter

import "github.com/michaelsouza/jessica-bb/internal/schedule"

// Counter drives one worker's State through the enumeration order defined
// by §4.C.
type Counter struct {
	s *schedule.State
}

// New wraps a State for stepping. The caller retains ownership of s;
// Counter only mutates it through Advance/MaterializeX/JumpToEnd.
func New(s *schedule.State) *Counter {
	return &Counter{s: s}
}

// State returns the underlying state, for read access by the evaluator
// and coordinator.
func (c *Counter) State() *schedule.State {
	return c.s
}

// Advance implements the enumeration stepper's state transition given the
// feasibility of the node just evaluated at h_cur. It returns false when
// this worker's assigned subtree is exhausted (§4.C "None").
//
// Transitions (verbatim from §4.C):
//   - feasible && h_cur < H: descend, y[h_cur+1] <- 0.
//   - feasible && h_cur == H: caller already consumed the leaf; treat as
//     infeasible to trigger the lateral move (the caller is expected to
//     have already updated the incumbent before calling Advance again —
//     see driver.go).
//   - infeasible && h_cur > h_min: increment y[h_cur] if < P, else pop.
//   - infeasible && h_cur == h_min: increment y[h_cur] if < h_cut, else
//     the subtree is exhausted.
func (c *Counter) Advance(feasible bool) bool {
	s := c.s

	if feasible && s.HCur < s.H {
		s.HCur++
		s.Y[s.HCur] = 0
		return true
	}

	return c.retreat()
}

// retreat implements the infeasible-signal branch of Advance, including
// the recursive pop-and-retry original BBCounter::update_y expresses via
// direct recursion. It is iterative here to avoid unbounded Go stack
// growth on a horizon with many consecutive exhausted levels.
func (c *Counter) retreat() bool {
	s := c.s
	for {
		if s.HCur == 0 {
			return false
		}

		if s.HCur == s.HMin {
			if s.Y[s.HCur] < s.HCut {
				s.Y[s.HCur]++
				return true
			}
			return false
		}

		// h_cur > h_min
		if s.Y[s.HCur] < s.P {
			s.Y[s.HCur]++
			return true
		}
		s.Y[s.HCur] = 0
		s.HCur--
	}
}

// JumpToEnd forces the next Advance call to pop past the current hour,
// used when the Cost predicate fails (§4.B "Cost": "signal jump to end of
// current level").
func (c *Counter) JumpToEnd() {
	s := c.s
	if s.HCur == s.HMin {
		s.Y[s.HCur] = s.HCut
	} else {
		s.Y[s.HCur] = s.P
	}
}

// FreeLevel returns the shallowest hour whose y is still below its cap —
// h_cut at h_min, P elsewhere — identifying the best level to split off
// to another worker (§4.C "free_level").
func (c *Counter) FreeLevel() int {
	s := c.s
	for h := s.HMin; h <= s.HCur; h++ {
		limit := s.P
		if h == s.HMin {
			limit = s.HCut
		}
		if s.Y[h] < limit {
			return h
		}
	}
	return s.HCur + 1
}

// MaterializeX computes x[h_cur,·] from y[h_cur] and x[h_cur-1,·] per
// Invariant S3, returning false (without touching the oracle) if doing so
// would push some pump's actuation count past A_max. Grounded on
// BBCounter::update_x_core.
func (c *Counter) MaterializeX(aMax int) bool {
	s := c.s
	h := s.HCur
	if h == 0 {
		return true
	}

	prev := s.XAt(h - 1)
	cur := s.XAt(h)
	copy(cur, prev)

	yOld, yNew := s.Y[h-1], s.Y[h]
	if yNew == yOld {
		s.CheckInvariantS1(h)
		return true
	}

	csum := cumulativeActuations(s, h, aMax)
	order := sortedByCsum(csum)

	ok := false
	if yNew > yOld {
		ok = activatePumps(cur, order, csum, yNew-yOld, aMax)
	} else {
		ok = deactivatePumps(cur, order, yOld-yNew)
	}
	if !ok {
		return false
	}
	s.CheckInvariantS1(h)
	return true
}

// cumulativeActuations returns, for every pump, the count of 0->1
// transitions over hours [1, h-1] — BBCounter::calc_actuations_csum.
func cumulativeActuations(s *schedule.State, h, aMax int) []int {
	csum := make([]int, s.P)
	for i := 2; i < h; i++ {
		old := s.XAt(i - 1)
		cur := s.XAt(i)
		for p := 0; p < s.P; p++ {
			if cur[p] > old[p] {
				csum[p]++
			}
		}
	}
	return csum
}

// sortedByCsum returns pump indices ordered by (csum[p], p) ascending —
// the tiebreak Invariant S3 requires.
func sortedByCsum(csum []int) []int {
	order := make([]int, len(csum))
	for i := range order {
		order[i] = i
	}
	// Simple insertion sort: pump counts are small (single digits in
	// practice) so this is both fast enough and trivially stable, which
	// a library sort would also need to be told to be.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && csum[order[j]] < csum[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// activatePumps turns on `need` currently-off pumps in ascending csum
// order, skipping (and ultimately failing on) any pump already at A_max.
func activatePumps(cur []int, order, csum []int, need, aMax int) bool {
	for _, p := range order {
		if need == 0 {
			break
		}
		if cur[p] == 0 {
			if csum[p] >= aMax {
				return false
			}
			cur[p] = 1
			need--
		}
	}
	return need == 0
}

// deactivatePumps turns off `need` currently-on pumps in ascending csum
// order (least-actuated first, preserving future flexibility).
func deactivatePumps(cur []int, order []int, need int) bool {
	for _, p := range order {
		if need == 0 {
			break
		}
		if cur[p] == 1 {
			cur[p] = 0
			need--
		}
	}
	return need == 0
}

// ReplayY sets y[1..H] from the caller-supplied vector and replays
// MaterializeX hour by hour, reporting the first infeasible hour if any.
// Grounded on BBCounter::set_y; this is the operation §8's scenario table
// exercises directly instead of hand-driving Advance/MaterializeX.
func ReplayY(s *schedule.State, y []int, aMax int) (ok bool, failedAtHour int) {
	s.HCur = 0
	for h := 1; h <= s.H; h++ {
		s.HCur = h
		s.Y[h] = y[h-1]
		c := New(s)
		if !c.MaterializeX(aMax) {
			return false, h
		}
	}
	return true, 0
}
