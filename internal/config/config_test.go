package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	yamlBody := `
pump_names:
  - "111"
  - "222"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"111", "222"}, cfg.PumpNames)
	// Untouched fields keep their default values.
	require.Equal(t, Default().NodeNames, cfg.NodeNames)
}

func TestLoadOverlaysEnv(t *testing.T) {
	t.Setenv("BBSOLVER_PUMP_NAMES", "A,B,C")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, cfg.PumpNames)
}

func TestValidateRejectsMismatchedLengths(t *testing.T) {
	cfg := Default()
	cfg.NodeThresholds = cfg.NodeThresholds[:1]
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNoPumps(t *testing.T) {
	cfg := Default()
	cfg.PumpNames = nil
	require.Error(t, cfg.Validate())
}

func TestToConstraintParamsCarriesAMax(t *testing.T) {
	params := Default().ToConstraintParams(3)
	require.Equal(t, 3, params.AMax)
	require.Equal(t, Default().PumpNames, params.PumpNames)
}
