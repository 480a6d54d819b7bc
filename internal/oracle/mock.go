package oracle

import (
	"context"
	"fmt"
	"sync"
)

// NetworkDescriptor is the fixture the Mock oracle "loads" in place of an
// INP-family file. The real oracle's Load parses such a file; the mock
// accepts the already-parsed topology directly so tests and the demo CLI
// path don't need a network file parser, which is explicitly out of scope
// (spec §1 "Also out of scope: the network file parser").
type NetworkDescriptor struct {
	Nodes []NodeFixture
	Tanks []TankFixture
	Pumps []string
}

// NodeFixture is a monitored junction node with a pressure threshold.
type NodeFixture struct {
	Name      string
	Threshold float64
}

// TankFixture is a tank with a stability corridor.
type TankFixture struct {
	Name         string
	LevelMin     float64
	LevelMax     float64
	InitialLevel float64
}

// Mock is a deterministic stand-in for the hydraulic oracle. It does not
// solve hydraulics: it approximates node pressures and tank heads as a
// function of the installed pump pattern so the search core's pruning and
// enumeration logic can be exercised end to end without linking a real
// simulator. Matching a real network's energy costs (§8's scenario table)
// requires the real oracle; Mock exists to validate the core's contracts
// against the Oracle interface, not to reproduce specific cost figures.
type Mock struct {
	mu         sync.Mutex
	descriptor NetworkDescriptor
	pumpRate   float64 // monetary cost per pump-hour at factor 1.0
	drift      float64 // fraction of the remaining distance to the corridor top (any pump on) or bottom (all off) a tank head covers per hour
}

// entryKind distinguishes a monitored pressure node from a tank in the
// unified index space GetNodeIndex resolves names into — matching how a
// real network file treats tanks as nodes too.
type entryKind int

const (
	kindNode entryKind = iota
	kindTank
)

type entryRef struct {
	kind entryKind
	pos  int // position within st.net.Nodes or st.net.Tanks
}

type mockState struct {
	net       NetworkDescriptor
	nodeIdx   map[string]int // name -> index into entries
	entries   []entryRef
	linkIdx   map[string]int
	speed     map[[2]int]float64 // (pumpIndex, hourIndex) -> factor
	tankHead  []float64
	pumpCost  []float64
	simTime   float64
	hourIndex int // hour currently being stepped through, 1-based
}

// NewMock creates a Mock oracle. pumpRate is the monetary cost charged per
// pump-hour run at full speed (factor 1.0); cost scales linearly with
// factor, matching the original's pump-energy model at the level of
// abstraction the core needs (monotone non-decreasing in simulated time).
func NewMock(pumpRate float64) *Mock {
	if pumpRate <= 0 {
		pumpRate = 10.0
	}
	return &Mock{pumpRate: pumpRate, drift: 0.2}
}

var _ Oracle = (*Mock)(nil)

// LoadDescriptor registers the descriptor the next Load call installs.
// Mock keeps exactly one active descriptor, mirroring how the CLI loads a
// single network path for an entire run.
func (m *Mock) LoadDescriptor(net NetworkDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptor = net
}

func (m *Mock) CreateProject(ctx context.Context) (Handle, error) {
	return &mockState{speed: make(map[[2]int]float64)}, nil
}

func (m *Mock) Load(ctx context.Context, h Handle, path string) error {
	st, err := asState(h)
	if err != nil {
		return err
	}
	m.mu.Lock()
	net := m.descriptor
	m.mu.Unlock()
	if len(net.Pumps) == 0 {
		return Wrap("load", fmt.Errorf("%w: no descriptor registered for %q", ErrIO, path))
	}
	st.net = net
	st.nodeIdx = make(map[string]int, len(net.Nodes)+len(net.Tanks))
	st.entries = make([]entryRef, 0, len(net.Nodes)+len(net.Tanks))
	for i, n := range net.Nodes {
		st.nodeIdx[n.Name] = len(st.entries)
		st.entries = append(st.entries, entryRef{kind: kindNode, pos: i})
	}
	for i, t := range net.Tanks {
		st.nodeIdx[t.Name] = len(st.entries)
		st.entries = append(st.entries, entryRef{kind: kindTank, pos: i})
	}
	st.linkIdx = make(map[string]int, len(net.Pumps))
	for i, p := range net.Pumps {
		st.linkIdx[p] = i
	}
	st.tankHead = make([]float64, len(net.Tanks))
	for i, t := range net.Tanks {
		st.tankHead[i] = t.InitialLevel
	}
	st.pumpCost = make([]float64, len(net.Pumps))
	return nil
}

func (m *Mock) InitSolver(ctx context.Context, h Handle, flag InitFlag) error {
	_, err := asState(h)
	return err
}

func (m *Mock) GetNodeIndex(ctx context.Context, h Handle, name string) (int, error) {
	st, err := asState(h)
	if err != nil {
		return 0, err
	}
	idx, ok := st.nodeIdx[name]
	if !ok {
		return 0, Wrap("get_node_index", fmt.Errorf("%w: node %q", ErrNotFound, name))
	}
	return idx, nil
}

func (m *Mock) GetLinkIndex(ctx context.Context, h Handle, name string) (int, error) {
	st, err := asState(h)
	if err != nil {
		return 0, err
	}
	idx, ok := st.linkIdx[name]
	if !ok {
		return 0, Wrap("get_link_index", fmt.Errorf("%w: link %q", ErrNotFound, name))
	}
	return idx, nil
}

func (m *Mock) SetPumpSpeedFactor(ctx context.Context, h Handle, pumpIndex, hourIndex int, factor float64) error {
	st, err := asState(h)
	if err != nil {
		return err
	}
	if pumpIndex < 0 || pumpIndex >= len(st.net.Pumps) {
		return Wrap("set_pump_speed_factor", fmt.Errorf("%w: pump index %d", ErrNotFound, pumpIndex))
	}
	st.speed[[2]int{pumpIndex, hourIndex}] = factor
	return nil
}

// RunStep advances the mock's notion of equilibrium for the hour currently
// being entered: tank heads move a fixed fraction (drift) of the way toward
// the corridor top when any pump has a non-zero factor this hour, or toward
// the corridor bottom when none does, and pump costs accumulate linearly in
// the factor and in elapsed time. This is a
// deliberately simple surrogate — see the Mock doc comment.
func (m *Mock) RunStep(ctx context.Context, h Handle) (float64, error) {
	st, err := asState(h)
	if err != nil {
		return 0, err
	}
	st.hourIndex++
	hour := st.hourIndex

	totalFactor := 0.0
	for p := range st.net.Pumps {
		factor := st.speed[[2]int{p, hour}]
		totalFactor += factor
		st.pumpCost[p] += factor * m.pumpRate
	}

	for i, t := range st.net.Tanks {
		mid := (t.LevelMin + t.LevelMax) / 2
		// Any pump on raises heads toward the corridor top; all pumps off
		// lets them drift toward the bottom. Each step covers only a
		// fraction of the remaining distance, so heads starting inside
		// the corridor stay inside it.
		target := mid
		if totalFactor > 0 {
			target = t.LevelMax
		} else {
			target = t.LevelMin
		}
		st.tankHead[i] += (target - st.tankHead[i]) * m.drift
	}

	st.simTime = float64(hour) * 3600
	return st.simTime, nil
}

// AdvanceStep always reports a fixed one-hour step and never returns
// dt==0: Mock has no horizon of its own, so the evaluator's cumulative
// simulated-time check is what ends a simulation.
func (m *Mock) AdvanceStep(ctx context.Context, h Handle) (float64, error) {
	_, err := asState(h)
	if err != nil {
		return 0, err
	}
	return 3600, nil
}

func (m *Mock) GetNodeValue(ctx context.Context, h Handle, index int, quantity Quantity) (float64, error) {
	st, err := asState(h)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(st.entries) {
		return 0, Wrap("get_node_value", fmt.Errorf("%w: node index %d", ErrNotFound, index))
	}
	entry := st.entries[index]
	switch quantity {
	case Pressure:
		if entry.kind != kindNode {
			return 0, Wrap("get_node_value", fmt.Errorf("index %d is a tank, not a pressure node", index))
		}
		// Pressure rises with the sum of tank heads relative to their
		// starting level, loosely modeling "more storage head -> more
		// downstream pressure". At load time, before any RunStep, every
		// tank sits exactly at its initial level, so pressure equals the
		// node's own threshold.
		pressure := st.net.Nodes[entry.pos].Threshold
		for i, t := range st.net.Tanks {
			pressure += (st.tankHead[i] - t.InitialLevel) * 0.5
		}
		return pressure, nil
	case Head:
		if entry.kind != kindTank {
			return 0, Wrap("get_node_value", fmt.Errorf("index %d is a pressure node, not a tank", index))
		}
		return st.tankHead[entry.pos], nil
	default:
		return 0, Wrap("get_node_value", fmt.Errorf("unsupported quantity %v", quantity))
	}
}

func (m *Mock) GetPumpEnergyCost(ctx context.Context, h Handle, pumpIndex int) (float64, error) {
	st, err := asState(h)
	if err != nil {
		return 0, err
	}
	if pumpIndex < 0 || pumpIndex >= len(st.pumpCost) {
		return 0, Wrap("get_pump_energy_cost", fmt.Errorf("%w: pump index %d", ErrNotFound, pumpIndex))
	}
	return st.pumpCost[pumpIndex], nil
}

// SaveProject validates the handle and writes nothing; Mock has no file
// format to dump its state into.
func (m *Mock) SaveProject(ctx context.Context, h Handle, path string) error {
	_, err := asState(h)
	return err
}

func (m *Mock) DeleteProject(ctx context.Context, h Handle) error {
	_, err := asState(h)
	return err
}

func asState(h Handle) (*mockState, error) {
	st, ok := h.(*mockState)
	if !ok || st == nil {
		return nil, Wrap("handle", fmt.Errorf("%w: invalid handle", ErrNotFound))
	}
	return st, nil
}
