// Package constraints implements the Constraint Set (§4.B): pure
// predicates over the current oracle state, each classifying its failing
// case for pruning statistics. Grounded on
// original_source/epanet-dev/src/CLI/BBConstraints.{h,cpp}; the verbose
// printf-based tracing there (show_pressures/show_levels/show_stability)
// is replaced with structured zap debug fields, per SPEC_FULL.md's
// ambient-stack logging convention.
package constraints

import (
	"context"
	"fmt"

	"github.com/michaelsouza/jessica-bb/internal/oracle"
	"github.com/michaelsouza/jessica-bb/internal/schedule"
	"go.uber.org/zap"
)

// NodeRef pairs a monitored node's oracle index with its feasibility
// threshold.
type NodeRef struct {
	Index     int
	Threshold float64
}

// TankRef pairs a tank's oracle index with its stability corridor.
type TankRef struct {
	Index        int
	LevelMin     float64
	LevelMax     float64
	InitialLevel float64
}

// Set evaluates the pressure, level, stability, and cost predicates
// against a loaded oracle handle. CostUB is carried on the set itself
// (original_source's BBConstraints::cost_max) rather than threaded as a
// loose parameter to every Check call.
type Set struct {
	Oracle oracle.Oracle
	Nodes  []NodeRef
	Tanks  []TankRef
	CostUB float64

	log *zap.Logger
}

// NewSet builds a Set. log may be nil, in which case a no-op logger is
// used (matching how the driver is free to run without verbose tracing).
func NewSet(o oracle.Oracle, nodes []NodeRef, tanks []TankRef, log *zap.Logger) *Set {
	if log == nil {
		log = zap.NewNop()
	}
	return &Set{Oracle: o, Nodes: nodes, Tanks: tanks, CostUB: schedule.NewIncumbent().CostUB, log: log}
}

// CheckPressures evaluates Pressure for every monitored node: pressure(n)
// >= threshold(n).
func (s *Set) CheckPressures(ctx context.Context, h oracle.Handle) (bool, error) {
	for _, n := range s.Nodes {
		p, err := s.Oracle.GetNodeValue(ctx, h, n.Index, oracle.Pressure)
		if err != nil {
			return false, fmt.Errorf("check pressures: %w", err)
		}
		if p < n.Threshold {
			s.log.Debug("pressure constraint failed",
				zap.Int("node_index", n.Index), zap.Float64("pressure", p), zap.Float64("threshold", n.Threshold))
			return false, nil
		}
	}
	return true, nil
}

// CheckLevels evaluates Level for every tank: level_min(t) <= head(t) <=
// level_max(t).
func (s *Set) CheckLevels(ctx context.Context, h oracle.Handle) (bool, error) {
	for _, t := range s.Tanks {
		head, err := s.Oracle.GetNodeValue(ctx, h, t.Index, oracle.Head)
		if err != nil {
			return false, fmt.Errorf("check levels: %w", err)
		}
		if head < t.LevelMin || head > t.LevelMax {
			s.log.Debug("level constraint failed",
				zap.Int("tank_index", t.Index), zap.Float64("head", head),
				zap.Float64("level_min", t.LevelMin), zap.Float64("level_max", t.LevelMax))
			return false, nil
		}
	}
	return true, nil
}

// CheckStability evaluates Stability for every tank: head(t) >=
// initial_level(t). Only meaningful at h_cur == H (§4.B "only when h_cur
// == H"); the caller is responsible for only calling it there.
func (s *Set) CheckStability(ctx context.Context, h oracle.Handle) (bool, error) {
	for _, t := range s.Tanks {
		head, err := s.Oracle.GetNodeValue(ctx, h, t.Index, oracle.Head)
		if err != nil {
			return false, fmt.Errorf("check stability: %w", err)
		}
		if head < t.InitialLevel {
			s.log.Debug("stability constraint failed",
				zap.Int("tank_index", t.Index), zap.Float64("head", head), zap.Float64("initial_level", t.InitialLevel))
			return false, nil
		}
	}
	return true, nil
}

// CheckCost evaluates Cost: the current cumulative cost must be strictly
// less than the incumbent bound. Cost is assumed monotone non-decreasing
// in h, so a failure here licenses skipping the rest of the current y[h]
// branch (§9's flagged domain assumption — see DESIGN.md).
func (s *Set) CheckCost(cost float64) bool {
	return cost < s.CostUB
}

// SetCostUB updates the incumbent bound this Set's CheckCost compares
// against. Called after an incumbent-gossip synchronization round tightens
// the global bound (§4.F step 1).
func (s *Set) SetCostUB(cost float64) {
	s.CostUB = cost
}
