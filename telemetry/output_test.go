package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/boids/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// All methods are nil-safe.
	assert.NoError(t, om.WriteTelemetry(WindowStats{}))
	assert.NoError(t, om.WriteManifest(Manifest{}))
	assert.NoError(t, om.Close())
	assert.Empty(t, om.RunID())
}

func TestOutputManagerWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	_, err = uuid.Parse(om.RunID())
	require.NoError(t, err, "run id should be a uuid")

	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 640, Agents: 60, SeekCaptures: 2}))
	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 1280, Agents: 60}))
	require.NoError(t, om.WritePerf(PerfStats{PhasePct: map[string]float64{PhaseSeek: 5}}, 640))
	require.NoError(t, om.WriteBookmark(Bookmark{Type: BookmarkCaptureBurst, Tick: 640, Description: "x"}))
	require.NoError(t, om.WriteManifest(Manifest{Seed: 7, Agents: 60}))
	require.NoError(t, om.WriteConfig(config.Default()))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "one header and two rows")
	assert.True(t, strings.HasPrefix(lines[0], "window_end,sim_time,agents"))
	assert.True(t, strings.HasPrefix(lines[1], "640,"))

	data, err = os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, om.RunID(), m.RunID)
	assert.Equal(t, int64(7), m.Seed)

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Simulation, cfg.Simulation)

	for _, name := range []string{"perf.csv", "bookmarks.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size(), name)
	}
}
