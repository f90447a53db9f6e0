package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepIntervalFloorsAtOneSecond(t *testing.T) {
	c := Config{SweepIntervalSeconds: 0.1}
	assert.Equal(t, time.Second, c.SweepInterval())

	c = Config{SweepIntervalSeconds: 2.5}
	assert.Equal(t, 2500*time.Millisecond, c.SweepInterval())

	c = Config{}
	assert.Equal(t, time.Second, c.SweepInterval())
}

// TestInitLoadsAndValidatesConfigFile is the only test in this package
// allowed to call Init: Init hard-fails a second call within the same
// process, so every other config behavior here is tested as a plain
// method on a Config value instead.
func TestInitLoadsAndValidatesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"mount": "mount",
		"camera": "camera",
		"wheel": "wheel",
		"host": "10.0.0.5",
		"port": 7624,
		"catalogURL": "http://catalog.local:8090"
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	require.NoError(t, Init(path))

	assert.Equal(t, "mount", Keys.Mount)
	assert.Equal(t, "10.0.0.5", Keys.Host)
	assert.Equal(t, 7624, Keys.Port)
	// Defaults not present in the file are preserved.
	assert.Equal(t, "./var/deadletter.db", Keys.DeadLetterDB)
}
