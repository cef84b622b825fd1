package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "studiosync.db", c.DataFile)
	assert.Equal(t, "127.0.0.1:8080/", c.ServerAddress)
	assert.Equal(t, 500*time.Millisecond, c.RequestDelay)
	assert.Equal(t, time.Minute, c.PingInterval)
	assert.Equal(t, 3*time.Second, c.PingTimeout)
	assert.Equal(t, time.Second, c.Debounce)
	assert.Equal(t, "accept", c.MergePolicy)
	assert.Empty(t, c.DataKey)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:8080/", cfg.ServerAddress)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_address": "json.example/",
		"merge_policy":   "newer",
	})
	os.Args = []string{"testbin", "-c", path, "-a", "flag.example/"}

	cfg := LoadConfig()

	assert.Equal(t, "flag.example/", cfg.ServerAddress)
	assert.Equal(t, "newer", cfg.MergePolicy)
}
