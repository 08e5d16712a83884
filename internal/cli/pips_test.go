package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/store"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.CommitSink(context.Background(),
		[]ir.PipRecord{
			{TileType: "PLC2", Sink: "A0", Source: "N1:V02S0100", Bits: []ir.ConfigBit{{Frame: 3, Bit: 1}}},
			{TileType: "PLC2", Sink: "A0", Source: "G:VCC", Bits: []ir.ConfigBit{{Frame: 3, Bit: 2}, {Frame: 4, Bit: 0, Invert: true}}},
		},
		[]ir.ConnRecord{{TileType: "CIB", Sink: "JA0", Source: "A0"}},
	))
	return path
}

func TestPips_Text(t *testing.T) {
	db := seedDatabase(t)

	out, _, err := execute(t, "pips", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "PLC2.G:VCC.A0 F3B2 !F4B0\n")
	assert.Contains(t, out, "PLC2.N1:V02S0100.A0 F3B1\n")
	assert.Contains(t, out, "CIB.A0.JA0 fixed\n")
	assert.Contains(t, out, "2 pip(s), 1 fixed connection(s)")
}

func TestPips_JSONByTileType(t *testing.T) {
	db := seedDatabase(t)

	out, _, err := execute(t, "--format", "json", "pips", "--db", db, "--tile-type", "CIB")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PipsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.Pips)
	require.Len(t, resp.Data.Conns, 1)
	assert.Equal(t, "JA0", resp.Data.Conns[0].Sink)
}

func TestPips_Errors(t *testing.T) {
	t.Run("db flag required", func(t *testing.T) {
		_, _, err := execute(t, "pips")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"db" not set`)
	})

	t.Run("missing database is not created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "typo.db")
		out, _, err := execute(t, "pips", "--db", path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E005]")
		assert.NoFileExists(t, path)
	})
}
