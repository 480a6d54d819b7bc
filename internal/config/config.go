// Package config loads the scenario parameters of §6/§8: the monitored
// node thresholds, tank corridors, and pump names the Constraint Set
// checks against. Grounded on
// Hola-to-network_logistics_problem/services' cmd/main.go pattern of
// layering an optional YAML file under environment variables with
// koanf, replacing original_source/epanet-dev/src/CLI/BBSolverConfig.cpp's
// hand-rolled argv parsing for everything except the flags themselves
// (cobra owns those; see cmd/bbsolver).
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/michaelsouza/jessica-bb/internal/schedule"
)

// ScenarioConfig is the set of fixed-per-run network parameters the
// search core needs: names the oracle must resolve to indices, plus the
// numeric thresholds the Constraint Set evaluates against.
type ScenarioConfig struct {
	NodeNames      []string  `koanf:"node_names"`
	NodeThresholds []float64 `koanf:"node_thresholds"`

	TankNames    []string  `koanf:"tank_names"`
	TankLevelMin []float64 `koanf:"tank_level_min"`
	TankLevelMax []float64 `koanf:"tank_level_max"`
	TankInitial  []float64 `koanf:"tank_initial"`

	PumpNames []string `koanf:"pump_names"`
}

// Default returns the §8 concrete-scenario network: three monitored
// nodes, three tanks sharing one corridor, three pumps.
func Default() ScenarioConfig {
	return ScenarioConfig{
		NodeNames:      []string{"55", "90", "170"},
		NodeThresholds: []float64{42, 51, 30},
		TankNames:      []string{"65", "165", "265"},
		TankLevelMin:   []float64{66.53, 66.53, 66.53},
		TankLevelMax:   []float64{71.53, 71.53, 71.53},
		TankInitial:    []float64{66.93, 66.93, 66.93},
		PumpNames:      []string{"111", "222", "333"},
	}
}

// Load builds a ScenarioConfig starting from Default, overlaid by the
// optional YAML file at path (skipped entirely if path is empty), in
// turn overlaid by BBSOLVER_-prefixed environment variables — the same
// file-then-env layering order Hola-to-network_logistics_problem's
// services use.
func Load(path string) (ScenarioConfig, error) {
	k := koanf.New(".")
	cfg := Default()
	defaults := confmap.Provider(map[string]interface{}{
		"node_names":      cfg.NodeNames,
		"node_thresholds": cfg.NodeThresholds,
		"tank_names":      cfg.TankNames,
		"tank_level_min":  cfg.TankLevelMin,
		"tank_level_max":  cfg.TankLevelMax,
		"tank_initial":    cfg.TankInitial,
		"pump_names":      cfg.PumpNames,
	}, ".")
	if err := k.Load(defaults, nil); err != nil {
		return ScenarioConfig{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return ScenarioConfig{}, fmt.Errorf("config: load file %q: %w", path, err)
		}
	}

	envProvider := env.Provider("BBSOLVER_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "BBSOLVER_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return ScenarioConfig{}, fmt.Errorf("config: load env: %w", err)
	}

	// A comma-split decode hook lets a single environment variable override
	// a slice field (e.g. BBSOLVER_PUMP_NAMES=111,222,333) the way a shell
	// environment naturally expresses a list, without requiring a full
	// YAML file just to change the pump set.
	var out ScenarioConfig
	err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			WeaklyTypedInput: true,
			Result:           &out,
		},
	})
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return out, nil
}

// Validate checks the internal shape invariants ConstraintParams needs:
// every per-entity slice pair must agree in length.
func (c ScenarioConfig) Validate() error {
	if len(c.NodeNames) != len(c.NodeThresholds) {
		return fmt.Errorf("config: %d node names but %d thresholds", len(c.NodeNames), len(c.NodeThresholds))
	}
	if len(c.TankNames) != len(c.TankLevelMin) || len(c.TankNames) != len(c.TankLevelMax) || len(c.TankNames) != len(c.TankInitial) {
		return fmt.Errorf("config: tank name/level slices disagree in length")
	}
	if len(c.PumpNames) == 0 {
		return fmt.Errorf("config: no pump names configured")
	}
	return nil
}

// ToConstraintParams builds the schedule.ConstraintParams this scenario
// describes, with the actuation cap supplied separately since it comes
// from the CLI rather than the scenario file (§8's table varies A_max
// per scenario while holding the network fixed).
func (c ScenarioConfig) ToConstraintParams(aMax int) schedule.ConstraintParams {
	return schedule.ConstraintParams{
		NodeNames:      c.NodeNames,
		NodeThresholds: c.NodeThresholds,
		TankNames:      c.TankNames,
		TankLevelMin:   c.TankLevelMin,
		TankLevelMax:   c.TankLevelMax,
		TankInitial:    c.TankInitial,
		PumpNames:      c.PumpNames,
		AMax:           aMax,
	}
}
