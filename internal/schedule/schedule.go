// Package schedule holds the per-worker state vectors of the pump
// actuation search: the aggregate y[h] and per-pump x[h,p] tables, the
// exploration cursor (h_cur, h_min, h_cut), and the incumbent schedule.
// Everything here is mutated by exactly one worker goroutine at a time
// (§3 "Lifecycle"); the coordinator overwrites it wholesale on hand-off,
// it never shares it.
package schedule

import (
	"fmt"
	"math"
)

// State holds the y/x vectors and the exploration cursor for one worker.
// H is the schedule horizon and P the pump count, fixed for the life of
// the State.
type State struct {
	H int
	P int

	// Y[h] is the aggregate count of pumps on during hour h, h in [0,H].
	Y []int
	// X[h*P+p] is 1 if pump p is on during hour h, 0 otherwise.
	X []int

	HCur int // deepest hour whose y is committed
	HMin int // shallowest hour this worker may still mutate
	HCut int // max value Y[HMin] may take
}

// New allocates a State for a horizon of H hours and P pumps, with the
// cursor at its initial position (§3 "Initially h_min=1, h_cut=P").
func New(h, p int) *State {
	return &State{
		H:    h,
		P:    p,
		Y:    make([]int, h+1),
		X:    make([]int, (h+1)*p),
		HCur: 0,
		HMin: 1,
		HCut: p,
	}
}

// XAt returns the per-pump on/off slice for hour h. The returned slice
// aliases State's backing array; callers must not retain it across a
// mutation of s.
func (s *State) XAt(h int) []int {
	return s.X[h*s.P : (h+1)*s.P]
}

// SumX returns Σ_p x[h,p], the quantity Invariant S1 requires to equal
// y[h] for every committed hour.
func (s *State) SumX(h int) int {
	sum := 0
	for _, v := range s.XAt(h) {
		sum += v
	}
	return sum
}

// CheckInvariantS1 panics with a diagnostic if Σ_p x[h,p] != y[h], per
// §7's ConsistencyError class. It is called after every materialization,
// never on a hypothetical or not-yet-materialized hour.
func (s *State) CheckInvariantS1(h int) {
	sum := s.SumX(h)
	if sum != s.Y[h] {
		panic(fmt.Sprintf("schedule: consistency error: sum(x)=%d != y=%d at h=%d", sum, s.Y[h], h))
	}
}

// CheckCursorBounds panics if h_cur has drifted outside [h_min, H], which
// would indicate a bug in the counter's stepper rather than a reachable
// runtime condition (§7 ConsistencyError). h_cur == 0, the state before
// the first descent, is also accepted.
func (s *State) CheckCursorBounds() {
	if s.HCur < 0 || s.HCur > s.H || (s.HCur > 0 && s.HCur < s.HMin) {
		panic(fmt.Sprintf("schedule: consistency error: h_cur=%d out of [h_min=%d,%d]", s.HCur, s.HMin, s.H))
	}
}

// Actuations counts, for pump p, the number of 0->1 transitions in x[·,p]
// over hours [1,upTo] (inclusive). This is the quantity Invariant S2
// bounds by A_max.
func (s *State) Actuations(p, upTo int) int {
	count := 0
	for h := 2; h <= upTo; h++ {
		if s.X[h*s.P+p] > s.X[(h-1)*s.P+p] {
			count++
		}
	}
	return count
}

// Snapshot is an immutable, independently-owned copy of a State, used as
// the unit the coordinator ships across a hand-off (§4.F).
type Snapshot struct {
	H, P           int
	Y              []int
	X              []int
	HCur, HMin, HCut int
}

// Snapshot makes an independent copy of s.
func (s *State) Snapshot() Snapshot {
	y := make([]int, len(s.Y))
	copy(y, s.Y)
	x := make([]int, len(s.X))
	copy(x, s.X)
	return Snapshot{H: s.H, P: s.P, Y: y, X: x, HCur: s.HCur, HMin: s.HMin, HCut: s.HCut}
}

// Restore overwrites s wholesale from a Snapshot — the "receiver
// overwrites its state from the buffer" step of §4.F's hand-off protocol.
func (s *State) Restore(snap Snapshot) {
	s.H = snap.H
	s.P = snap.P
	s.Y = append(s.Y[:0], snap.Y...)
	s.X = append(s.X[:0], snap.X...)
	s.HCur = snap.HCur
	s.HMin = snap.HMin
	s.HCut = snap.HCut
}

// Incumbent is the best complete schedule found so far, shared read-mostly
// across workers at synchronization boundaries (§3 "Incumbent").
type Incumbent struct {
	CostUB float64
	Y      []int
	X      []int
}

// NewIncumbent returns an incumbent with no solution yet (§3 "Initially
// cost_ub = +∞").
func NewIncumbent() Incumbent {
	return Incumbent{CostUB: math.Inf(1)}
}

// Better reports whether cost improves on the incumbent's current bound.
func (inc Incumbent) Better(cost float64) bool {
	return cost < inc.CostUB
}

// Update records a new best schedule. Callers must have already checked
// Better; Update does not re-check so it can be used unconditionally
// after an incumbent-gossip broadcast adopts a peer's bound (§4.F step 1).
func (inc *Incumbent) Update(cost float64, y, x []int) {
	inc.CostUB = cost
	inc.Y = append(inc.Y[:0], y...)
	inc.X = append(inc.X[:0], x...)
}

// Clone returns an independent copy of inc.
func (inc Incumbent) Clone() Incumbent {
	y := make([]int, len(inc.Y))
	copy(y, inc.Y)
	x := make([]int, len(inc.X))
	copy(x, inc.X)
	return Incumbent{CostUB: inc.CostUB, Y: y, X: x}
}

// ConstraintParams are the fixed-per-run parameters supplied by the
// caller: monitored node thresholds, tank corridors, and the actuation
// cap (§3 "Constraint parameters").
type ConstraintParams struct {
	NodeNames      []string
	NodeThresholds []float64

	TankNames    []string
	TankLevelMin []float64
	TankLevelMax []float64
	TankInitial  []float64

	PumpNames []string

	AMax int
}
