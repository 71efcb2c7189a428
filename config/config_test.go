package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brensch/speed/engine/decision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STRATEGY", "defensive")
	t.Setenv("THREADS", "3")
	t.Setenv("SAFETY_BUFFER", "250ms")
	t.Setenv("CUTOFF_WEIGHT", "0.9")

	c := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-threads", "5", "-importance-weight", "-1"}))

	assert.Equal(t, "defensive", c.Strategy)
	assert.Equal(t, 5, c.Threads)
	assert.Equal(t, 250*time.Millisecond, c.SafetyBuffer)
	require.NotNil(t, c.CutoffWeight)
	assert.Equal(t, 0.9, *c.CutoffWeight)
	require.NoError(t, c.Validate())

	dc, err := c.Decision(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, dc.Forecast.Depth)
	assert.Equal(t, decision.Weights{Cutoff: 0.9, Importance: decision.Dynamic}, dc.Weights)
	assert.Equal(t, dc.Weights, dc.ClassicWeights)
	assert.False(t, dc.Matrices)
	assert.Equal(t, 5, dc.Search.Threads)
	assert.Equal(t, 5, dc.Forecast.Threads)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KEY=from-file\nURL=wss://example.test/spe_ed\n"), 0o644))
	t.Setenv("URL", "wss://already.set/spe_ed")
	t.Setenv("KEY", "")
	require.NoError(t, os.Unsetenv("KEY"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("KEY"))
	assert.Equal(t, "wss://already.set/spe_ed", os.Getenv("URL"), "existing variables win")

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestWebsocketURL(t *testing.T) {
	c := DefaultConfig()
	_, err := c.WebsocketURL()
	assert.Error(t, err)

	c.URL = "wss://msoll.de/spe_ed"
	c.Key = "a b&c"
	u, err := c.WebsocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://msoll.de/spe_ed?key=a+b%26c", u)
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	for _, kind := range []string{"graph", "classic", "slowdown", "random"} {
		ok := c
		ok.Solver = kind
		assert.NoError(t, ok.Validate(), kind)
	}

	bad := c
	bad.Solver = "oracle"
	assert.Error(t, bad.Validate())

	bad = c
	bad.Strategy = "reckless"
	assert.Error(t, bad.Validate())

	bad = c
	bad.Threads = 0
	assert.Error(t, bad.Validate())
}

func TestDecisionClassicWeights(t *testing.T) {
	c := DefaultConfig()
	c.Solver = decision.KindClassic
	c.RecordDir = t.TempDir()
	dc, err := c.Decision(nil)
	require.NoError(t, err)
	assert.Equal(t, decision.Weights{Cutoff: 0.4, Importance: 0.05}, dc.ClassicWeights)
	assert.Equal(t, decision.Weights{Cutoff: 0.35, Importance: 0.15}, dc.Weights)
	assert.True(t, dc.Matrices)

	s, err := decision.NewSolver(c.Solver, dc)
	require.NoError(t, err)
	assert.Equal(t, decision.KindClassic, s.Name())
}
