// Command bbsolver runs the parallel branch-and-bound pump actuation
// search of §1–§9 against the oracle.Mock deterministic stand-in (the
// real hydraulic solver adapter is explicitly out of scope, per the
// oracle contract in internal/oracle). It wires config, logging, the
// worker pool, and reports the best schedule found.
//
// Grounded on kubernetes-purgatory-karpenter-core's cobra-based command
// wiring, replacing original_source/epanet-dev/src/CLI/BBSolverConfig.cpp's
// hand-rolled argv loop with a cobra.Command and its flag set (§6).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelsouza/jessica-bb/internal/config"
	"github.com/michaelsouza/jessica-bb/internal/constraints"
	"github.com/michaelsouza/jessica-bb/internal/coordinator"
	"github.com/michaelsouza/jessica-bb/internal/counter"
	"github.com/michaelsouza/jessica-bb/internal/driver"
	"github.com/michaelsouza/jessica-bb/internal/evaluator"
	"github.com/michaelsouza/jessica-bb/internal/logging"
	"github.com/michaelsouza/jessica-bb/internal/oracle"
	"github.com/michaelsouza/jessica-bb/internal/schedule"
	"github.com/michaelsouza/jessica-bb/internal/stats"
	"github.com/michaelsouza/jessica-bb/internal/telemetry"
)

// flags holds every value the cobra command accepts, mirroring §6's
// external interface.
type flags struct {
	input         string
	scenarioPath  string
	hMax          int
	maxActuations int
	hThreshold    int
	verbose       bool
	logPath       string
	savePath      string
}

// exitCode classifies an error per §6: 0 clean, 1 oracle failure, 2 CLI
// error. Any other error (a ConsistencyError panic is never wrapped this
// way — it crashes the process directly, per §7) is treated as an oracle
// failure, the closer of the two non-zero codes.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *cliError
	if errors.As(err, &cliErr) {
		return 2
	}
	return 1
}

// cliError marks a ConfigurationError (§7): invalid CLI input, missing
// node/pump name, or malformed scenario file, distinguished from an
// OracleError so main can choose the right exit code.
type cliError struct {
	err error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func newCLIError(format string, args ...interface{}) error {
	return &cliError{err: fmt.Errorf(format, args...)}
}

func main() {
	f := &flags{}
	root := newRootCommand(f)
	err := root.Execute()
	os.Exit(exitCode(err))
}

func newRootCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bbsolver",
		Short: "Parallel branch-and-bound search over pump actuation schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	// Flag parse failures are CLI errors (exit 2), not oracle failures.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cliError{err: err}
	})

	fs := cmd.Flags()
	fs.StringVarP(&f.input, "input", "i", "", "network descriptor path (consumed by the oracle only)")
	fs.StringVar(&f.scenarioPath, "scenario", "", "optional YAML scenario override (node/tank/pump config)")
	// -h is reserved by cobra for --help, so §6's -h/--h_max loses its
	// short form and gains a hyphenated long name.
	fs.IntVar(&f.hMax, "h-max", 24, "schedule horizon, in hours")
	fs.IntVarP(&f.maxActuations, "max-actuations", "a", 3, "maximum 0->1 transitions per pump over the horizon")
	fs.IntVarP(&f.hThreshold, "h-threshold", "t", 18, "hand-off depth bound: a worker only splits off work at or above this free level (§4.F backpressure)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug-level logging")
	fs.StringVarP(&f.logPath, "log", "l", "", "write the run summary to this path in addition to stdout")
	fs.StringVarP(&f.savePath, "save", "s", "", "replay the incumbent and pass this path to the oracle's SaveProject (oracle.Mock writes no file)")

	return cmd
}

func run(ctx context.Context, f *flags) error {
	log, err := logging.New(f.verbose)
	if err != nil {
		return fmt.Errorf("bbsolver: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if f.hMax < 0 {
		return newCLIError("bbsolver: --h-max must be >= 0, got %d", f.hMax)
	}
	if f.maxActuations < 0 {
		return newCLIError("bbsolver: --max-actuations must be >= 0, got %d", f.maxActuations)
	}

	cfg, err := config.Load(f.scenarioPath)
	if err != nil {
		return newCLIError("bbsolver: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return newCLIError("bbsolver: %w", err)
	}

	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()))
	log.Info("starting search",
		zap.Int("h_max", f.hMax), zap.Int("max_actuations", f.maxActuations),
		zap.Strings("pumps", cfg.PumpNames))

	m, pumpIndex, cs, err := bootstrapOracle(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bbsolver: %w", err)
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 1
	}

	workers := make([]*coordinator.Worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		s := schedule.New(f.hMax, len(cfg.PumpNames))
		workerLog := log.With(zap.Int("worker", i), zap.String("worker_id", uuid.New().String()))
		workerCS := constraints.NewSet(m, cs.Nodes, cs.Tanks, workerLog)
		ev := evaluator.New(m, f.input, pumpIndex, workerCS)
		st := stats.New(f.hMax)
		inc := schedule.NewIncumbent()
		c := counter.New(s)

		d := driver.New(c, ev, st, &inc, f.maxActuations, workerLog)
		w := coordinator.NewWorker(i, d)
		if i > 0 {
			// §8's boundary case: all workers start done except one; the
			// rest start idle so the coordinator's rebalance pass must
			// hand them a real subtree before they contribute anything.
			w.MarkIdle()
		}
		workers[i] = w
	}

	co := coordinator.New(workers, 5000, f.hThreshold, log)
	best, allStats, err := co.Run(ctx)
	if err != nil {
		return fmt.Errorf("bbsolver: %w", err)
	}

	totals := stats.Merge(allStats)
	report := formatReport(runID, best, totals)
	fmt.Print(report)
	if f.logPath != "" {
		if err := os.WriteFile(f.logPath, []byte(report), 0o644); err != nil {
			return fmt.Errorf("bbsolver: write log: %w", err)
		}
	}

	metrics := telemetry.New()
	for i, s := range allStats {
		metrics.ObserveWorker(strconv.Itoa(i), s)
	}
	metrics.ObserveIncumbent(best.CostUB)

	if f.savePath != "" {
		if err := saveIncumbent(ctx, m, f.input, pumpIndex, best, f.savePath); err != nil {
			return fmt.Errorf("bbsolver: save: %w", err)
		}
	}

	return nil
}

// bootstrapOracle resolves every configured name to its stable oracle
// index once, per §9's "resolves names to integer indices at startup"
// design note, and builds the Constraint Set template every worker
// copies its own instance from.
func bootstrapOracle(ctx context.Context, cfg config.ScenarioConfig) (*oracle.Mock, []int, *constraints.Set, error) {
	m := oracle.NewMock(10)

	nodes := make([]oracle.NodeFixture, len(cfg.NodeNames))
	for i, name := range cfg.NodeNames {
		nodes[i] = oracle.NodeFixture{Name: name, Threshold: cfg.NodeThresholds[i]}
	}
	tanks := make([]oracle.TankFixture, len(cfg.TankNames))
	for i, name := range cfg.TankNames {
		tanks[i] = oracle.TankFixture{
			Name: name, LevelMin: cfg.TankLevelMin[i], LevelMax: cfg.TankLevelMax[i], InitialLevel: cfg.TankInitial[i],
		}
	}
	m.LoadDescriptor(oracle.NetworkDescriptor{Nodes: nodes, Tanks: tanks, Pumps: cfg.PumpNames})

	h, err := m.CreateProject(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() { _ = m.DeleteProject(ctx, h) }()
	if err := m.Load(ctx, h, "bootstrap"); err != nil {
		return nil, nil, nil, err
	}

	nodeRefs := make([]constraints.NodeRef, len(cfg.NodeNames))
	for i, name := range cfg.NodeNames {
		idx, err := m.GetNodeIndex(ctx, h, name)
		if err != nil {
			return nil, nil, nil, newCLIError("resolve node %q: %w", name, err)
		}
		nodeRefs[i] = constraints.NodeRef{Index: idx, Threshold: cfg.NodeThresholds[i]}
	}
	tankRefs := make([]constraints.TankRef, len(cfg.TankNames))
	for i, name := range cfg.TankNames {
		idx, err := m.GetNodeIndex(ctx, h, name)
		if err != nil {
			return nil, nil, nil, newCLIError("resolve tank %q: %w", name, err)
		}
		tankRefs[i] = constraints.TankRef{
			Index: idx, LevelMin: cfg.TankLevelMin[i], LevelMax: cfg.TankLevelMax[i], InitialLevel: cfg.TankInitial[i],
		}
	}
	pumpIndex := make([]int, len(cfg.PumpNames))
	for i, name := range cfg.PumpNames {
		idx, err := m.GetLinkIndex(ctx, h, name)
		if err != nil {
			return nil, nil, nil, newCLIError("resolve pump %q: %w", name, err)
		}
		pumpIndex[i] = idx
	}

	cs := constraints.NewSet(m, nodeRefs, tankRefs, nil)
	return m, pumpIndex, cs, nil
}

// saveIncumbent replays the best schedule found through a fresh handle
// and dumps the resulting project state, per §6's "Persisted state"
// clause.
func saveIncumbent(ctx context.Context, m *oracle.Mock, path string, pumpIndex []int, best schedule.Incumbent, savePath string) error {
	if len(best.Y) == 0 {
		return fmt.Errorf("no incumbent to save")
	}
	h, err := m.CreateProject(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = m.DeleteProject(ctx, h) }()

	if err := m.Load(ctx, h, path); err != nil {
		return err
	}
	if err := m.InitSolver(ctx, h, oracle.InitFlow); err != nil {
		return err
	}

	horizon := len(best.Y) - 1
	p := len(pumpIndex)
	for hour := 1; hour <= horizon; hour++ {
		row := best.X[hour*p : (hour+1)*p]
		for i, pumpIdx := range pumpIndex {
			factor := 0.0
			if row[i] == 1 {
				factor = 1.0
			}
			if err := m.SetPumpSpeedFactor(ctx, h, pumpIdx, hour, factor); err != nil {
				return err
			}
		}
	}
	for hour := 1; hour <= horizon; hour++ {
		if _, err := m.RunStep(ctx, h); err != nil {
			return err
		}
		if _, err := m.AdvanceStep(ctx, h); err != nil {
			return err
		}
	}

	return m.SaveProject(ctx, h, savePath)
}

func formatReport(runID uuid.UUID, best schedule.Incumbent, totals stats.Totals) string {
	out := fmt.Sprintf("run %s\n", runID)
	if len(best.Y) == 0 {
		out += "no feasible schedule found\n"
		return out
	}
	out += fmt.Sprintf("cost: %.2f\n", best.CostUB)
	out += fmt.Sprintf("y: %v\n", best.Y[1:])
	out += "prune counts by hour:\n"
	for h := 0; h <= totals.H; h++ {
		line := fmt.Sprintf("  h=%d feasible=%d", h, totals.Feasible[h])
		for _, reason := range stats.Reasons() {
			if v := totals.Prunings[h][reason]; v > 0 {
				line += fmt.Sprintf(" %s=%d", reason, v)
			}
		}
		out += line + "\n"
	}
	out += fmt.Sprintf("elapsed: %s\n", totals.Elapsed)
	return out
}
