package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pipfuzz", cmd.Use)
	assert.Contains(t, cmd.Long, "configuration bits")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"fuzz", "validate", "pips", "normalize", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestFuzzCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	fuzzCmd, _, err := cmd.Find([]string{"fuzz"})
	require.NoError(t, err)

	dbFlag := fuzzCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// Defaults to <job dir>/<device>.db at run time
	assert.Equal(t, "", dbFlag.DefValue)

	parallelism := fuzzCmd.Flags().Lookup("parallelism")
	require.NotNil(t, parallelism)
	assert.Equal(t, "-1", parallelism.DefValue)

	require.NotNil(t, fuzzCmd.Flags().Lookup("metrics-file"))
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "pipfuzz version 0.1.0")
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "yaml", "normalize", "--tile", "R1C1:PLC2", "--max-row", "9", "--max-col", "9", "R1C1_A0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestNewLogger(t *testing.T) {
	quiet := newLogger(&RootOptions{}, nil)
	assert.False(t, quiet.Enabled(t.Context(), slog.LevelDebug))

	verbose := newLogger(&RootOptions{Verbose: true}, nil)
	assert.True(t, verbose.Enabled(t.Context(), slog.LevelDebug))
}
