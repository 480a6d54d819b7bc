// Package oracle defines the interface the search core requires from the
// hydraulic simulation engine, per the spec's §4.A contract. The core never
// reaches into the simulator's own pointer graph of nodes, tanks, and
// links; it resolves names to integer indices once at load time and talks
// to the rest of this interface purely in terms of an opaque Handle.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Quantity selects which scalar a node reports through GetNodeValue.
type Quantity int

const (
	// Pressure is the node's pressure, in the simulator's native units.
	Pressure Quantity = iota
	// Head is the node's hydraulic head (used for tank levels).
	Head
)

func (q Quantity) String() string {
	switch q {
	case Pressure:
		return "pressure"
	case Head:
		return "head"
	default:
		return "unknown"
	}
}

// InitFlag selects the initial-condition strategy for InitSolver. The only
// value the search core uses is InitFlow, matching the original CLI's
// default; the type exists so callers cannot pass an arbitrary int.
type InitFlag int

// InitFlow asks the solver to compute an initial equilibrium flow before
// the first RunStep call.
const InitFlow InitFlag = 0

// Handle is an opaque reference to one loaded, initialized simulation
// project. The core never dereferences it; it only passes it back into
// further Oracle calls and eventually into DeleteProject.
type Handle interface{}

// Sentinel errors the search core checks for with errors.Is. A failure of
// one of these kinds wraps the matching sentinel with additional context
// via fmt.Errorf("...: %w", ...); other failures (such as asking Mock for
// the wrong quantity at an index) wrap none of them.
var (
	// ErrIO signals that the network descriptor file could not be read.
	ErrIO = errors.New("oracle: io error")
	// ErrParse signals that the network descriptor file was malformed.
	ErrParse = errors.New("oracle: parse error")
	// ErrNotFound signals that a requested node or link name does not
	// exist in the loaded network.
	ErrNotFound = errors.New("oracle: name not found")
	// ErrSolve signals that the hydraulic solver failed to reach an
	// equilibrium for the current step.
	ErrSolve = errors.New("oracle: solve failed")
)

// Oracle is the hydraulic simulation engine the search core treats as an
// external collaborator. Implementations are assumed deterministic given
// the same installed pump pattern, and are not required to be safe for
// concurrent use on the same Handle — the core never shares a Handle
// across goroutines; each worker owns the full life cycle of every Handle
// it creates, one per candidate evaluation (§4.A, §5).
type Oracle interface {
	// CreateProject allocates a new, empty project handle.
	CreateProject(ctx context.Context) (Handle, error)

	// Load reads the network descriptor at path into h. Fails with
	// ErrIO or ErrParse.
	Load(ctx context.Context, h Handle, path string) error

	// InitSolver prepares the hydraulic solver for stepping, using the
	// given initial-condition strategy.
	InitSolver(ctx context.Context, h Handle, flag InitFlag) error

	// GetNodeIndex resolves a node name to a stable integer index. Fails
	// with ErrNotFound.
	GetNodeIndex(ctx context.Context, h Handle, name string) (int, error)

	// GetLinkIndex resolves a link (pump) name to a stable integer
	// index. Fails with ErrNotFound. This is the index SetPumpSpeedFactor
	// and GetPumpEnergyCost expect as pumpIndex.
	GetLinkIndex(ctx context.Context, h Handle, name string) (int, error)

	// SetPumpSpeedFactor installs the speed multiplier for pumpIndex
	// during hourIndex. Must be callable for every hourIndex in [1,H]
	// before RunStep is asked to simulate past that hour.
	SetPumpSpeedFactor(ctx context.Context, h Handle, pumpIndex, hourIndex int, factor float64) error

	// RunStep computes the hydraulic equilibrium at the simulator's
	// current internal time and reports that time in t.
	RunStep(ctx context.Context, h Handle) (t float64, err error)

	// AdvanceStep reports the duration to the next event and advances
	// the simulator's internal clock by it. dt == 0 marks end of
	// horizon.
	AdvanceStep(ctx context.Context, h Handle) (dt float64, err error)

	// GetNodeValue reads a scalar quantity at a node index.
	GetNodeValue(ctx context.Context, h Handle, index int, quantity Quantity) (float64, error)

	// GetPumpEnergyCost reads the cumulative monetary cost attributed
	// to pumpIndex so far in the simulation.
	GetPumpEnergyCost(ctx context.Context, h Handle, pumpIndex int) (float64, error)

	// SaveProject dumps the project's current state to path. Used only
	// when the CLI's -s/--save flag is set (§6 "Persisted state").
	SaveProject(ctx context.Context, h Handle, path string) error

	// DeleteProject releases all resources associated with h. The core
	// calls this unconditionally, even after a failed evaluation.
	DeleteProject(ctx context.Context, h Handle) error
}

// Error wraps an underlying oracle failure with the operation that
// triggered it, so callers can log "oracle: load: oracle: io error: no
// descriptor registered for \"x.inp\"" without losing errors.Is
// compatibility with the sentinels above.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds an *Error for operation op around err. Returns nil if err is
// nil, so callers can write `return oracle.Wrap("load", err)` unconditionally.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
