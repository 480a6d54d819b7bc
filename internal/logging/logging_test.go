package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/stretchr/testify/require"
)

func TestNewRespectsVerboseLevel(t *testing.T) {
	quiet, err := New(false)
	require.NoError(t, err)
	require.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	_ = quiet.Sync() // best-effort: syncing stderr can return an error on some platforms

	verbose, err := New(true)
	require.NoError(t, err)
	require.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
	_ = verbose.Sync()
}

func TestNewNopDiscardsEverything(t *testing.T) {
	log := NewNop()
	require.NotNil(t, log)
	log.Info("should be discarded")
}
